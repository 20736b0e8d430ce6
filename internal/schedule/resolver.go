package schedule

import (
	"context"
	"errors"
	"fmt"

	"motivator/internal/domain"
	"motivator/pkg/logx"
)

// Resolver returns a user's effective timing preference. Resolving twice without
// a write in between yields the same preference.
type Resolver struct {
	store Store
	log   logx.Logger
}

func NewResolver(store Store, log logx.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Resolve loads the preference, which the store creates with defaults on first
// access. A stored preference that fails validation is replaced by the system
// defaults for this call only; the stored row is left for the user to fix.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (domain.TimingPreference, error) {
	p, err := r.Load(ctx, userID)
	var invalid *domain.InvalidPreferenceError
	if errors.As(err, &invalid) {
		r.log.Warn("invalid timing preference, using defaults",
			logx.Int64("user", userID),
			logx.String("field", invalid.Field),
			logx.String("reason", invalid.Reason),
		)
		return domain.DefaultTimingPreference(userID), nil
	}
	return p, err
}

// Load is Resolve without the fallback: invalid preferences are returned as
// *domain.InvalidPreferenceError.
func (r *Resolver) Load(ctx context.Context, userID int64) (domain.TimingPreference, error) {
	p, err := r.store.GetTimingPreference(ctx, userID)
	if err != nil {
		return domain.TimingPreference{}, fmt.Errorf("resolve timing preference: %w", err)
	}
	if err := p.Validate(); err != nil {
		return domain.TimingPreference{}, err
	}
	return p, nil
}
