// Package roll runs the roll-and-grant transaction: cooldown check, identity
// verification, weighted sampling, and the downstream grant.
package roll

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"auraroll/internal/cooldown"
	"auraroll/internal/identity"
	"auraroll/internal/inventory"
	"auraroll/internal/metrics"
	"auraroll/internal/rewards"
	"auraroll/internal/validation"
)

const tracerName = "auraroll/internal/roll"

// Request is one roll attempt as received from the client.
type Request struct {
	Identity  string
	Assertion string
}

// Config controls verification policy and step timeouts.
type Config struct {
	// RequireAssertion rejects requests without an assertion. When false, a
	// request without one skips verification and is trusted as claimed.
	RequireAssertion bool
	VerifyTimeout    time.Duration
	GrantTimeout     time.Duration
}

// Orchestrator sequences a roll. It holds no per-request state and is safe
// for concurrent use.
type Orchestrator struct {
	cfg      Config
	tracker  *cooldown.Tracker
	verifier identity.Verifier
	table    *rewards.Table
	granter  inventory.Granter
	now      func() time.Time
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithLogger overrides slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator from its collaborators.
func New(cfg Config, tracker *cooldown.Tracker, verifier identity.Verifier, table *rewards.Table, granter inventory.Granter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		tracker:  tracker,
		verifier: verifier,
		table:    table,
		granter:  granter,
		now:      time.Now,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Roll runs one transaction to a terminal outcome. Outbound calls are
// detached from ctx cancellation: once started they run to their own
// timeout, because a grant cannot be rolled back.
func (o *Orchestrator) Roll(ctx context.Context, req Request) Outcome {
	rollID := uuid.NewString()

	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "roll", trace.WithAttributes(
		attribute.String("roll.id", rollID),
	))
	defer span.End()

	out := o.run(ctx, req)
	out.RollID = rollID
	if out.Identity == "" && out.Kind != KindRejected {
		out.Identity = req.Identity
	}

	span.SetAttributes(attribute.String("roll.outcome", string(out.Kind)))
	if out.Kind == KindGrantFailed {
		span.SetStatus(codes.Error, out.Reason)
	}
	metrics.RecordOutcome(string(out.Kind))
	o.log(ctx, out)

	return out
}

func (o *Orchestrator) run(ctx context.Context, req Request) Outcome {
	if ok, msg := validation.ValidateIdentity(req.Identity); !ok {
		return rejected(msg)
	}
	if req.Assertion == "" && o.cfg.RequireAssertion {
		return rejected("assertion is required")
	}
	if ok, msg := validation.ValidateAssertion(req.Assertion); !ok {
		return rejected(msg)
	}

	// Cooldown is checked against the unverified claim so repeat rolls are
	// refused without a network round trip.
	res, remaining, ok := o.tracker.Reserve(req.Identity, o.now())
	if !ok {
		return Outcome{
			Kind:             KindCooldownActive,
			RemainingSeconds: remaining,
			Reason:           "cooldown active",
		}
	}
	defer res.Release()

	verified, err := o.verify(ctx, req)
	if err != nil {
		metrics.RecordVerificationFailure(string(identity.KindOf(err)))
		return Outcome{
			Kind:   KindVerificationFailed,
			Reason: string(identity.KindOf(err)),
			Err:    err,
		}
	}
	if verified != res.Identity() {
		return Outcome{
			Kind:   KindVerificationFailed,
			Reason: string(identity.KindMismatch),
			Err:    identity.ErrIdentityMismatch,
		}
	}

	rewardID := o.table.Sample()

	// The window is spent before the grant is attempted, so a client cannot
	// drive unlimited grant calls by making the grant fail.
	res.Commit(o.now())

	if err := o.grant(ctx, verified, rewardID); err != nil {
		return Outcome{
			Kind:     KindGrantFailed,
			Identity: verified,
			RewardID: rewardID,
			Reason:   "grant failed",
			Err:      err,
		}
	}

	metrics.RecordGrant(rewardID)
	return Outcome{Kind: KindGranted, Identity: verified, RewardID: rewardID}
}

func (o *Orchestrator) verify(ctx context.Context, req Request) (string, error) {
	if req.Assertion == "" {
		return req.Identity, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.VerifyTimeout)
	defer cancel()
	ctx, span := o.tracer.Start(ctx, "roll.verify")
	defer span.End()

	start := time.Now()
	verified, err := o.verifier.Verify(ctx, req.Identity, req.Assertion)
	metrics.ObserveStep("verify", time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(identity.KindOf(err)))
	}
	return verified, err
}

func (o *Orchestrator) grant(ctx context.Context, who, rewardID string) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.GrantTimeout)
	defer cancel()
	ctx, span := o.tracer.Start(ctx, "roll.grant", trace.WithAttributes(
		attribute.String("reward.id", rewardID),
	))
	defer span.End()

	start := time.Now()
	err := o.granter.Grant(ctx, who, rewardID)
	metrics.ObserveStep("grant", time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grant failed")
	}
	return err
}

func (o *Orchestrator) log(ctx context.Context, out Outcome) {
	attrs := []any{
		"roll_id", out.RollID,
		"identity", out.Identity,
		"outcome", string(out.Kind),
	}
	switch out.Kind {
	case KindGranted:
		o.logger.InfoContext(ctx, "reward granted", append(attrs, "reward_id", out.RewardID)...)
	case KindGrantFailed:
		o.logger.ErrorContext(ctx, "grant failed after cooldown consumed",
			append(attrs, "reward_id", out.RewardID, "error", out.Err)...)
	case KindVerificationFailed:
		o.logger.WarnContext(ctx, "identity verification failed",
			append(attrs, "reason", out.Reason, "error", out.Err)...)
	case KindCooldownActive:
		o.logger.InfoContext(ctx, "roll refused by cooldown",
			append(attrs, "remaining_seconds", out.RemainingSeconds)...)
	default:
		o.logger.InfoContext(ctx, "roll rejected", append(attrs, "reason", out.Reason)...)
	}
}
