/*
scheduler.go - New-year policy rollover

PURPOSE:
  Periodically tops up every open tenant's balances from the current
  year's leave policy, so employees start January with their allotments
  without an admin pressing "apply policy".

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Visits every tenant handle the registry has open
  - Skips tenants without a policy for the current year
  - Skips tenants already rolled over this year (in-process record)
  - Never resets: ApplyPolicyToAllEmployees(year, reset=false) only raises

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewRolloverScheduler(registry, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRollover endpoint (manual run)
  - leave/ledger.go: ApplyPolicyToAllEmployees
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/tenant"
)

// RolloverResult describes what one run did for one tenant.
type RolloverResult struct {
	Tenant  string `json:"tenant"`
	Year    int    `json:"year"`
	Status  string `json:"status"` // applied, skipped, no_policy, failed
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// RolloverScheduler applies the current year's policy once per tenant.
type RolloverScheduler struct {
	Registry      *tenant.Registry
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	logger *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	runMu sync.Mutex
	done  map[string]int // slug -> year rolled over
}

// NewRolloverScheduler creates a scheduler with the default interval.
func NewRolloverScheduler(registry *tenant.Registry, logger *slog.Logger) *RolloverScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RolloverScheduler{
		Registry:      registry,
		CheckInterval: time.Hour,
		Enabled:       true,
		now:           time.Now,
		logger:        logger.With("component", "rollover"),
		stop:          make(chan struct{}),
		done:          make(map[string]int),
	}
}

// Start begins the scheduler.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger.Info("scheduler disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.logger.Info("scheduler started", "interval", rs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("scheduler stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// RunNow performs one pass over the open tenants and reports per tenant.
func (rs *RolloverScheduler) RunNow(ctx context.Context) []RolloverResult {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	year := rs.now().Year()
	handles := rs.Registry.Handles()
	results := make([]RolloverResult, 0, len(handles))

	applied := 0
	for _, h := range handles {
		res := rs.rollover(ctx, h, year)
		if res.Status == "applied" {
			applied++
		}
		results = append(results, res)
	}

	if applied > 0 {
		rs.logger.Info("rollover completed", "year", year, "tenants", len(handles), "applied", applied)
	}
	return results
}

func (rs *RolloverScheduler) rollover(ctx context.Context, h *tenant.Handle, year int) RolloverResult {
	res := RolloverResult{Tenant: h.Slug, Year: year}

	if rs.done[h.Slug] == year {
		res.Status = "skipped"
		return res
	}

	if _, err := h.Policies.Get(ctx, year); err != nil {
		if generic.IsNotFound(err) {
			res.Status = "no_policy"
			return res
		}
		rs.logger.Error("rollover policy lookup failed", "tenant", h.Slug, "year", year, "error", err)
		res.Status, res.Error = "failed", err.Error()
		return res
	}

	out, err := h.Ledger.ApplyPolicyToAllEmployees(ctx, year, false)
	if err != nil {
		rs.logger.Error("rollover failed", "tenant", h.Slug, "year", year, "error", err)
		res.Status, res.Error = "failed", err.Error()
		return res
	}

	rs.done[h.Slug] = year
	res.Status, res.Created, res.Updated = "applied", out.Created, out.Updated
	rs.logger.Info("tenant rolled over", "tenant", h.Slug, "year", year,
		"created", out.Created, "updated", out.Updated)
	return res
}
