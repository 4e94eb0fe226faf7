package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"plugscan/internal/store"
	"plugscan/internal/testsupport"
)

func TestReserveQuotaEnforcesLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	limits := store.QuotaLimits{store.ServiceLLM: 2}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := st.ReserveQuota(ctx, store.ServiceLLM, limits); err != nil {
			t.Fatalf("reservation %d failed: %v", i+1, err)
		}
	}
	if err := st.ReserveQuota(ctx, store.ServiceLLM, limits); !errors.Is(err, store.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestRefundQuotaRestoresBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	limits := store.QuotaLimits{store.ServiceVision: 1}

	ctx := context.Background()
	if err := st.ReserveQuota(ctx, store.ServiceVision, limits); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := st.ReserveQuota(ctx, store.ServiceVision, limits); !errors.Is(err, store.ErrQuotaExceeded) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if err := st.RefundQuota(ctx, store.ServiceVision); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if err := st.ReserveQuota(ctx, store.ServiceVision, limits); err != nil {
		t.Fatalf("reserve after refund failed: %v", err)
	}
}

func TestReserveQuotaConcurrentNeverOverspends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	const limit = 5
	limits := store.QuotaLimits{store.ServiceSTT: limit}

	ctx := context.Background()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.ReserveQuota(ctx, store.ServiceSTT, limits); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != limit {
		t.Fatalf("expected exactly %d grants, got %d", limit, granted)
	}
}

func TestQuotaSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	limits := store.QuotaLimitsFromConfig(cfg)

	ctx := context.Background()
	if err := st.ReserveQuota(ctx, store.ServiceCommerce, limits); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	usages, err := st.QuotaSnapshot(ctx, limits)
	if err != nil {
		t.Fatalf("QuotaSnapshot failed: %v", err)
	}
	if len(usages) != 4 {
		t.Fatalf("expected 4 services, got %d", len(usages))
	}
	found := false
	for _, usage := range usages {
		if usage.Service == store.ServiceCommerce {
			found = true
			if usage.Used != 1 {
				t.Fatalf("expected 1 used for commerce, got %d", usage.Used)
			}
		} else if usage.Used != 0 {
			t.Fatalf("expected untouched budget for %s, got %d", usage.Service, usage.Used)
		}
	}
	if !found {
		t.Fatal("commerce usage missing from snapshot")
	}
}
