package keeper

import (
	"context"
	"math/rand"
	"regexp"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/openclaim/claimdex/store"
	"github.com/openclaim/claimdex/x/ledger/types"
)

// InitialBalance is the signup grant.
var InitialBalance = math.LegacyNewDec(100)

var pseudonymRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// casAttempts bounds the optimistic-concurrency retry loop. Three attempts
// with jitter is enough to ride out bursts on a hot user row.
const casAttempts = 3

// Keeper owns all CC movement. Nothing outside this package mutates a
// user's balances.
type Keeper struct {
	store  store.Store
	logger log.Logger
}

func NewKeeper(st store.Store, logger log.Logger) *Keeper {
	return &Keeper{store: st, logger: logger.With("module", "x/ledger")}
}

// Initialize returns the existing user for the pseudonym or creates one with
// the signup grant. The bool reports whether the user was created.
func (k *Keeper) Initialize(ctx context.Context, pseudonym string) (*types.User, bool, error) {
	if !pseudonymRe.MatchString(pseudonym) {
		return nil, false, types.ErrInvalidPseudonym
	}

	existing, err := k.store.GetUserByPseudonym(ctx, pseudonym)
	if err == nil {
		return existing, false, nil
	}
	if !store.ErrNotFound.Is(err) {
		return nil, false, err
	}

	u := types.NewUser(uuid.NewString(), pseudonym, InitialBalance)
	if err := k.store.CreateUser(ctx, u); err != nil {
		if store.ErrDuplicate.Is(err) {
			// Lost a signup race; the winner's row is the user.
			if again, err2 := k.store.GetUserByPseudonym(ctx, pseudonym); err2 == nil {
				return again, false, nil
			}
			return nil, false, types.ErrPseudonymTaken
		}
		return nil, false, err
	}
	k.logger.Info("user initialized", "user_id", u.ID, "pseudonym", pseudonym)
	return u, true, nil
}

// GetUser loads a user by id.
func (k *Keeper) GetUser(ctx context.Context, id string) (*types.User, error) {
	u, err := k.store.GetUser(ctx, id)
	if err != nil {
		if store.ErrNotFound.Is(err) {
			return nil, types.ErrUserNotFound.Wrap(id)
		}
		return nil, err
	}
	return u, nil
}

// TopUsers returns the leaderboard by total balance, best first.
func (k *Keeper) TopUsers(ctx context.Context, limit int) ([]*types.User, error) {
	return k.store.TopUsers(ctx, limit)
}

// mutate reloads the user and applies fn under optimistic concurrency,
// retrying a bounded number of times on version conflicts.
func (k *Keeper) mutate(ctx context.Context, userID string, fn func(*types.User) error) (*types.User, error) {
	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Intn(20)+5) * time.Millisecond
			select {
			case <-time.After(jitter):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		u, err := k.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(u); err != nil {
			return nil, err
		}
		u.UpdatedAt = time.Now().UTC()

		err = k.store.UpdateUser(ctx, u)
		if err == nil {
			return u, nil
		}
		if !store.ErrVersionConflict.Is(err) {
			return nil, err
		}
		lastErr = err
	}
	k.logger.Error("user update exhausted retries", "user_id", userID, "err", lastErr)
	return nil, types.ErrConflict.Wrap(userID)
}

// Lock moves amt from the user's available balance to locked.
func (k *Keeper) Lock(ctx context.Context, userID string, amt math.LegacyDec) (*types.User, error) {
	return k.mutate(ctx, userID, func(u *types.User) error {
		return u.Lock(amt)
	})
}

// Unlock moves amt from locked back to available.
func (k *Keeper) Unlock(ctx context.Context, userID string, amt math.LegacyDec) (*types.User, error) {
	return k.mutate(ctx, userID, func(u *types.User) error {
		return u.Unlock(amt)
	})
}

// Credit adds amt to available. Earnings accrue the user's lifetime total.
func (k *Keeper) Credit(ctx context.Context, userID string, amt math.LegacyDec, category types.CreditCategory) (*types.User, error) {
	return k.mutate(ctx, userID, func(u *types.User) error {
		return u.Credit(amt, category)
	})
}

// UnlockAndCredit settles a winning commitment in one write: the original
// lock is released and the payout lands as earnings.
func (k *Keeper) UnlockAndCredit(ctx context.Context, userID string, unlock, credit math.LegacyDec) (*types.User, error) {
	return k.mutate(ctx, userID, func(u *types.User) error {
		if err := u.Unlock(unlock); err != nil {
			return err
		}
		return u.Credit(credit, types.CreditEarnings)
	})
}

// DebitFromLocked slashes amt out of the user's locked balance.
func (k *Keeper) DebitFromLocked(ctx context.Context, userID string, amt math.LegacyDec) (*types.User, error) {
	return k.mutate(ctx, userID, func(u *types.User) error {
		return u.DebitFromLocked(amt)
	})
}
