// Package inventory grants rewards through the downstream inventory service.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultSteamGrantURL is the partner endpoint that adds items to a player's inventory.
const DefaultSteamGrantURL = "https://partner.steam-api.com/IInventoryService/AddItem/v1/"

const maxResponseBytes = 1 << 20

var (
	ErrGrantUnavailable  = errors.New("inventory service unreachable")
	ErrGrantRejected     = errors.New("inventory service rejected grant")
	ErrMalformedResponse = errors.New("inventory service returned malformed response")
)

// Granter attaches one unit of a reward to an identity's inventory. No
// retries and no deduplication: two calls may grant twice.
type Granter interface {
	Grant(ctx context.Context, identity, rewardID string) error
}

// SteamGranter calls IInventoryService/AddItem.
type SteamGranter struct {
	endpoint string
	appID    string
	apiKey   string
	client   *http.Client
}

// NewSteamGranter creates a granter. An empty endpoint selects
// DefaultSteamGrantURL.
func NewSteamGranter(endpoint, appID, apiKey string, timeout time.Duration) *SteamGranter {
	if endpoint == "" {
		endpoint = DefaultSteamGrantURL
	}
	return &SteamGranter{
		endpoint: endpoint,
		appID:    appID,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Grant posts a quantity-one AddItem request. Any non-2xx status or a body
// without a response object is a failure.
func (g *SteamGranter) Grant(ctx context.Context, identity, rewardID string) error {
	form := url.Values{}
	form.Set("key", g.apiKey)
	form.Set("appid", g.appID)
	form.Set("steamid", identity)
	form.Set("itemdefid[0]", rewardID)
	form.Set("quantity[0]", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGrantUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrGrantUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrGrantRejected, resp.StatusCode, truncate(body, 256))
	}

	var parsed struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Response) == 0 || string(parsed.Response) == "null" {
		return fmt.Errorf("%w: missing response object", ErrMalformedResponse)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
