package services

import (
	"context"
	"errors"

	"plugscan/internal/store"
)

// Budget gates external calls behind a per-service daily quota. Reserve is
// called before dialing out and must atomically claim one unit of quota;
// Refund returns the unit when the reserved call never completed usefully.
type Budget interface {
	Reserve(ctx context.Context, service string) error
	Refund(ctx context.Context, service string) error
}

// UnlimitedBudget satisfies Budget without enforcing anything. Tests and
// tooling that exercise adapters directly use it instead of a real store.
type UnlimitedBudget struct{}

func (UnlimitedBudget) Reserve(context.Context, string) error { return nil }

func (UnlimitedBudget) Refund(context.Context, string) error { return nil }

// StoreBudget binds the persisted quota ledger to the Budget contract and
// translates ledger exhaustion into the taxonomy's quota sentinel.
type StoreBudget struct {
	Store  *store.Store
	Limits store.QuotaLimits
}

func (b *StoreBudget) Reserve(ctx context.Context, service string) error {
	if err := b.Store.ReserveQuota(ctx, service, b.Limits); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return Wrap(ErrQuotaExhausted, "", service, "daily budget spent", err)
		}
		return err
	}
	return nil
}

func (b *StoreBudget) Refund(ctx context.Context, service string) error {
	return b.Store.RefundQuota(ctx, service)
}

// Guard wraps fn with quota accounting: one unit is reserved up front and
// refunded when fn reports failure. A nil budget means no enforcement.
func Guard(ctx context.Context, budget Budget, service string, fn func(ctx context.Context) error) error {
	if budget == nil {
		return fn(ctx)
	}
	if err := budget.Reserve(ctx, service); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		// The refund is best effort; the original failure is what matters.
		_ = budget.Refund(ctx, service)
		return err
	}
	return nil
}
