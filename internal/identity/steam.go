// Package identity confirms that a client-supplied assertion belongs to the
// identity the client claims.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultSteamAuthURL is Steam's session ticket validation endpoint.
const DefaultSteamAuthURL = "https://api.steampowered.com/ISteamUserAuth/AuthenticateUserTicket/v1/"

const maxResponseBytes = 1 << 20

// Verifier checks an assertion against a claimed identity and returns the
// verified identity. Failures are always *VerificationError.
type Verifier interface {
	Verify(ctx context.Context, claimed, assertion string) (string, error)
}

// SteamVerifier validates session tickets with the Steam Web API.
type SteamVerifier struct {
	endpoint string
	appID    string
	apiKey   string
	client   *http.Client
}

// NewSteamVerifier creates a verifier. An empty endpoint selects
// DefaultSteamAuthURL.
func NewSteamVerifier(endpoint, appID, apiKey string, timeout time.Duration) *SteamVerifier {
	if endpoint == "" {
		endpoint = DefaultSteamAuthURL
	}
	return &SteamVerifier{
		endpoint: endpoint,
		appID:    appID,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type steamAuthResponse struct {
	Response *struct {
		Params *struct {
			Result          string `json:"result"`
			SteamID         string `json:"steamid"`
			OwnerSteamID    string `json:"ownersteamid"`
			VACBanned       bool   `json:"vacbanned"`
			PublisherBanned bool   `json:"publisherbanned"`
		} `json:"params"`
		Error *struct {
			ErrorCode int    `json:"errorcode"`
			ErrorDesc string `json:"errordesc"`
		} `json:"error"`
	} `json:"response"`
}

// Verify calls AuthenticateUserTicket and requires result "OK" with a steamid
// equal to claimed.
func (v *SteamVerifier) Verify(ctx context.Context, claimed, assertion string) (string, error) {
	q := url.Values{}
	q.Set("key", v.apiKey)
	q.Set("appid", v.appID)
	q.Set("ticket", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", unavailable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", unavailable(redactURL(err, v.endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return "", unavailable(fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", rejected("status %d", resp.StatusCode)
	}

	var body steamAuthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return "", rejected("malformed response: %v", err)
	}
	if body.Response == nil {
		return "", rejected("malformed response: missing response object")
	}
	if e := body.Response.Error; e != nil {
		return "", rejected("error %d: %s", e.ErrorCode, e.ErrorDesc)
	}
	params := body.Response.Params
	if params == nil {
		return "", rejected("malformed response: missing params")
	}
	if params.Result != "OK" {
		return "", rejected("result %q", params.Result)
	}

	return matchIdentity(claimed, params.SteamID)
}

// redactURL strips the query string, which carries the API key, from
// transport errors before they reach logs.
func redactURL(err error, endpoint string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = endpoint
	}
	return err
}
