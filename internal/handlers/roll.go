package handlers

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"auraroll/internal/metrics"
	"auraroll/internal/models"
	"auraroll/internal/roll"
)

// Roller runs a roll transaction.
type Roller interface {
	Roll(ctx context.Context, req roll.Request) roll.Outcome
}

// RollHandler exposes the roll transaction over HTTP.
type RollHandler struct {
	roller Roller
}

// NewRollHandler creates a new roll handler.
func NewRollHandler(roller Roller) *RollHandler {
	return &RollHandler{roller: roller}
}

// Roll handles POST /roll-aura and maps the outcome to a stable response.
func (h *RollHandler) Roll(c fiber.Ctx) error {
	var body models.RollRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		metrics.RecordOutcome(string(roll.KindRejected))
		return jsonError(c, fiber.StatusBadRequest, models.ErrorResponse{
			Outcome: string(roll.KindRejected),
			Error:   "invalid request body",
		})
	}

	out := h.roller.Roll(c.Context(), roll.Request{
		Identity:  body.Identity,
		Assertion: body.Assertion,
	})

	switch out.Kind {
	case roll.KindGranted:
		return jsonSuccess(c, models.RollResponse{
			RollID:   out.RollID,
			Identity: out.Identity,
			RewardID: out.RewardID,
		})
	case roll.KindCooldownActive:
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(out.RemainingSeconds))
		return jsonError(c, fiber.StatusTooManyRequests, models.ErrorResponse{
			Outcome:    string(out.Kind),
			Error:      "Too many rolls. Please wait.",
			RollID:     out.RollID,
			RetryAfter: out.RemainingSeconds,
		})
	case roll.KindVerificationFailed:
		return jsonError(c, fiber.StatusUnauthorized, models.ErrorResponse{
			Outcome: string(out.Kind),
			Error:   "identity could not be verified",
			RollID:  out.RollID,
		})
	case roll.KindGrantFailed:
		return jsonError(c, fiber.StatusBadGateway, models.ErrorResponse{
			Outcome: string(out.Kind),
			Error:   "reward grant failed",
			RollID:  out.RollID,
		})
	default:
		return jsonError(c, fiber.StatusBadRequest, models.ErrorResponse{
			Outcome: string(roll.KindRejected),
			Error:   out.Reason,
			RollID:  out.RollID,
		})
	}
}
