package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plugscan/internal/config"
)

// Service names used as quota ledger keys.
const (
	ServiceSTT      = "stt"
	ServiceLLM      = "llm"
	ServiceVision   = "vision"
	ServiceCommerce = "commerce"
)

// QuotaUsage is one row of the daily call ledger.
type QuotaUsage struct {
	Service string
	Day     string
	Used    int
	Limit   int
}

// QuotaLimits carries the per-service daily ceilings applied when a ledger
// row is first created for a day.
type QuotaLimits map[string]int

// QuotaLimitsFromConfig builds the ledger ceilings from configuration.
func QuotaLimitsFromConfig(cfg *config.Config) QuotaLimits {
	if cfg == nil {
		return QuotaLimits{}
	}
	return QuotaLimits{
		ServiceSTT:      cfg.Quota.STTDaily,
		ServiceLLM:      cfg.Quota.LLMDaily,
		ServiceVision:   cfg.Quota.VisionDaily,
		ServiceCommerce: cfg.Quota.CommerceDaily,
	}
}

func quotaDay(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// ReserveQuota atomically claims one unit of today's budget for a service.
// The claim succeeds only while used < limit, so concurrent reservations can
// never push usage past the ceiling. A spent budget yields ErrQuotaExceeded.
func (s *Store) ReserveQuota(ctx context.Context, service string, limits QuotaLimits) error {
	limit, ok := limits[service]
	if !ok {
		return fmt.Errorf("no quota limit configured for service %q", service)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: %s has a zero budget", ErrQuotaExceeded, service)
	}

	ctx = ensureContext(ctx)
	day := quotaDay(time.Now())

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO service_quotas (service, day, used, quota_limit) VALUES (?, ?, 0, ?)
         ON CONFLICT(service, day) DO NOTHING`,
		service, day, limit,
	); err != nil {
		return fmt.Errorf("ensure quota row: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE service_quotas SET used = used + 1
         WHERE service = ? AND day = ? AND used < quota_limit`,
		service, day,
	)
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, service)
	}
	return nil
}

// RefundQuota returns one reserved unit for a service. Used when a reserved
// call failed, so only successful calls consume budget.
func (s *Store) RefundQuota(ctx context.Context, service string) error {
	day := quotaDay(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE service_quotas SET used = used - 1
         WHERE service = ? AND day = ? AND used > 0`,
		service, day,
	); err != nil {
		return fmt.Errorf("refund quota: %w", err)
	}
	return nil
}

// QuotaSnapshot returns today's ledger rows for every known service.
func (s *Store) QuotaSnapshot(ctx context.Context, limits QuotaLimits) ([]QuotaUsage, error) {
	day := quotaDay(time.Now())
	usages := make([]QuotaUsage, 0, len(limits))
	for _, service := range []string{ServiceSTT, ServiceLLM, ServiceVision, ServiceCommerce} {
		limit, ok := limits[service]
		if !ok {
			continue
		}
		usage := QuotaUsage{Service: service, Day: day, Limit: limit}
		row := s.db.QueryRowContext(
			ctx,
			`SELECT used, quota_limit FROM service_quotas WHERE service = ? AND day = ?`,
			service, day,
		)
		if err := row.Scan(&usage.Used, &usage.Limit); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("quota snapshot: %w", err)
			}
		}
		usages = append(usages, usage)
	}
	return usages, nil
}
