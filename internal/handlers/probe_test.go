package handlers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"

	"auraroll/internal/rewards"
)

func TestProbeHandler(t *testing.T) {
	table, err := rewards.NewTable([]rewards.Entry{{RewardID: "100", Weight: 1}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	tests := []struct {
		name       string
		table      *rewards.Table
		path       string
		wantStatus int
	}{
		{"liveness", nil, "/healthz", http.StatusOK},
		{"ready with table", table, "/readyz", http.StatusOK},
		{"not ready without table", nil, "/readyz", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewProbeHandler(tt.table)
			app := fiber.New()
			app.Get("/healthz", h.Liveness)
			app.Get("/readyz", h.Readiness)

			req, _ := http.NewRequest(http.MethodGet, tt.path, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
