// internal/app/system/invites/invites.go
package invites

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/metrics"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Lookup for an unknown token, and by Consume
// when the compare-and-swap filter matched nothing.
var ErrNotFound = errors.New("invitation not found")

// Lookup is the token-indexed side of the invitation store.
type Lookup interface {
	// ByToken returns the invitation for token. With anyStatus=false only
	// active invitations are returned.
	ByToken(ctx context.Context, token string, anyStatus bool) (models.Invitation, error)
	// Consume records one redemption by userID, atomically, only while the
	// invitation is active, unexpired at now, and below its use limit. It
	// returns the updated invitation, or ErrNotFound when the guard failed.
	Consume(ctx context.Context, token string, userID primitive.ObjectID, now time.Time) (models.Invitation, error)
}

// Reason explains why a token was rejected.
type Reason string

const (
	ReasonNotFound    Reason = "not_found"
	ReasonNotActive   Reason = "not_active"
	ReasonExpired     Reason = "expired"
	ReasonExhausted   Reason = "exhausted"
	ReasonUnavailable Reason = "unavailable"
)

// Rejection is the error returned for a token that cannot be redeemed.
type Rejection struct {
	Reason Reason
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return "invitation rejected: " + string(r.Reason) + ": " + r.Err.Error()
	}
	return "invitation rejected: " + string(r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Err }

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// Options tune Validate.
type Options struct {
	// AllowAnyStatus ignores the status field for legacy tokens. Expiry and
	// the use limit are still enforced.
	AllowAnyStatus bool
}

// Validator checks and redeems invitation tokens.
type Validator struct {
	store Lookup
	log   *zap.Logger
	now   func() time.Time
}

// NewValidator constructs a Validator over store.
func NewValidator(store Lookup, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{store: store, log: logger, now: time.Now}
}

// WithClock replaces the clock. Tests use it to pin expiry checks.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate returns the invitation for token or a *Rejection. Reasons are
// checked in order: not found, not active, expired, exhausted.
func (v *Validator) Validate(ctx context.Context, token string, opts Options) (models.Invitation, error) {
	if token == "" {
		return models.Invitation{}, &Rejection{Reason: ReasonNotFound}
	}

	// Always fetch regardless of status so not_active can be told apart from not_found.
	inv, err := v.store.ByToken(ctx, token, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Invitation{}, &Rejection{Reason: ReasonNotFound}
		}
		v.log.Warn("invitation lookup failed", zap.Error(err))
		return models.Invitation{}, &Rejection{Reason: ReasonUnavailable, Err: err}
	}

	if !opts.AllowAnyStatus && inv.Status != models.InvitationActive {
		return inv, &Rejection{Reason: ReasonNotActive}
	}
	if !v.now().Before(inv.ExpiresAt) {
		return inv, &Rejection{Reason: ReasonExpired}
	}
	if inv.MaxUses > 0 && inv.Uses >= inv.MaxUses {
		return inv, &Rejection{Reason: ReasonExhausted}
	}
	return inv, nil
}

// Redeem validates token and consumes one use for userID. When two
// redemptions race for the last use, the loser gets ReasonExhausted.
func (v *Validator) Redeem(ctx context.Context, token string, userID primitive.ObjectID) (models.Invitation, error) {
	inv, err := v.redeem(ctx, token, userID)
	if reason, ok := ReasonOf(err); ok {
		metrics.ObserveRedemption(string(reason))
	} else if err == nil {
		metrics.ObserveRedemption("ok")
	}
	return inv, err
}

func (v *Validator) redeem(ctx context.Context, token string, userID primitive.ObjectID) (models.Invitation, error) {
	if _, err := v.Validate(ctx, token, Options{}); err != nil {
		return models.Invitation{}, err
	}

	now := v.now()
	inv, err := v.store.Consume(ctx, token, userID, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost the compare-and-swap; re-read to report the precise reason.
			if cur, verr := v.Validate(ctx, token, Options{}); verr != nil {
				return cur, verr
			}
			return models.Invitation{}, &Rejection{Reason: ReasonExhausted}
		}
		v.log.Warn("invitation consume failed", zap.String("token_prefix", prefix(token)), zap.Error(err))
		return models.Invitation{}, &Rejection{Reason: ReasonUnavailable, Err: err}
	}
	return inv, nil
}

func prefix(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
