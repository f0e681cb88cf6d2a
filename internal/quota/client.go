package quota

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"go.uber.org/zap"
)

// Result is the verdict of a limit check
type Result struct {
	Allowed bool  `json:"allowed"`
	Limit   int64 `json:"limit"`
	Current int64 `json:"current"`
}

// Client talks to the billing/quota service. The service is an
// optional dependency: when disabled or unreachable, Check degrades to
// the configured fallback limits against the caller-supplied local
// count, and SyncUsage becomes a logged no-op failure.
type Client struct {
	cfg    *config.QuotaConfig
	http   *resty.Client
	logger *zap.Logger
}

type checkRequest struct {
	OrgID      string `json:"org_id"`
	Feature    string `json:"feature"`
	Additional int64  `json:"additional"`
}

type syncRequest struct {
	OrgID   string `json:"org_id"`
	Feature string `json:"feature"`
	Count   int64  `json:"count"`
}

// NewClient creates a quota client from config
func NewClient(cfg *config.QuotaConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("X-Service-Name", cfg.ServiceName).
		SetHeader("X-Service-Key", cfg.ServiceSecret)
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Check asks whether the org may create `additional` more rows of the
// feature. `current` is the local row count, used both as payload and
// as the basis for the fallback decision.
func (c *Client) Check(ctx context.Context, orgID uuid.UUID, feature string, additional, current int64) Result {
	if !c.cfg.Enabled {
		return c.fallback(feature, additional, current)
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.cfg.CheckTimeoutDuration())
	defer cancel()

	var result Result
	resp, err := c.http.R().
		SetContext(checkCtx).
		SetBody(checkRequest{OrgID: orgID.String(), Feature: feature, Additional: additional}).
		SetResult(&result).
		Post("/api/v1/quota/check")
	if err != nil || resp.IsError() {
		c.logger.Warn("quota check degraded to fallback limits",
			zap.String("feature", feature),
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return c.fallback(feature, additional, current)
	}
	return result
}

// SyncUsage reports the authoritative local count after a committed
// mutation. Failures are logged and dropped; the next sync or a
// reconciliation pass repairs the drift.
func (c *Client) SyncUsage(ctx context.Context, orgID uuid.UUID, feature string, count int64) {
	if !c.cfg.Enabled {
		return
	}

	syncCtx, cancel := context.WithTimeout(ctx, c.cfg.SyncTimeoutDuration())
	defer cancel()

	resp, err := c.http.R().
		SetContext(syncCtx).
		SetBody(syncRequest{OrgID: orgID.String(), Feature: feature, Count: count}).
		Post("/api/v1/quota/usage")
	if err != nil {
		c.logger.Warn("usage sync failed", zap.String("feature", feature), zap.Error(err))
		return
	}
	if resp.IsError() {
		c.logger.Warn("usage sync rejected",
			zap.String("feature", feature),
			zap.Int("status", resp.StatusCode()),
		)
	}
}

// Health pings the quota service for the readiness endpoint
func (c *Client) Health(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, c.cfg.CheckTimeoutDuration())
	defer cancel()

	resp, err := c.http.R().SetContext(checkCtx).Get("/health")
	if err != nil {
		return fmt.Errorf("quota service unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("quota service unhealthy: status %d", resp.StatusCode())
	}
	return nil
}

// fallback applies the configured per-feature limits for the default
// plan. Limit 0 means unlimited.
func (c *Client) fallback(feature string, additional, current int64) Result {
	limit := c.cfg.FallbackLimits[feature]
	if limit == 0 {
		return Result{Allowed: true, Limit: 0, Current: current}
	}
	return Result{
		Allowed: current+additional <= limit,
		Limit:   limit,
		Current: current,
	}
}
