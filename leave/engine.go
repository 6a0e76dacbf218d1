/*
engine.go - Leave request state machine

PURPOSE:
  Validates leave applications, creates them as Pending, and moves them
  through Approved / Rejected / Cancelled while keeping the balance ledger
  in step.

STATE MACHINE:
                    ┌──────────┐
       apply  ───▶  │ Pending  │
                    └────┬─────┘
           ┌─────────────┼──────────────┐
           ▼             ▼              ▼
     ┌──────────┐  ┌──────────┐  ┌───────────┐
     │ Approved │  │ Rejected │  │ Cancelled │
     └──────────┘  └──────────┘  └───────────┘
       debit          -              -

  Leaving Approved credits the working days back. Entering Approved
  (from any other state, including Cancelled) debits them again.

APPLY CHECKS (first failure wins):
  1. user, start, end, type, reason present      ValidationError
  2. start <= end                                ValidationError
  3. no Pending/Approved overlap                 ConflictError
  4. working days net of tenant holidays
  5. balance covers working days (not unpaid)    InsufficientBalanceError
  6. notify targets exist                        ValidationError

  Apply does NOT reserve balance. Two non-overlapping Pending requests can
  both pass step 5 against the same days; the second approval then fails
  with InsufficientBalanceError.

ATOMICITY:
  Each operation holds the applicant's lock (shared with the Ledger) and
  runs its check-then-act inside one storage transaction.

SEE ALSO:
  - ledger.go: Balance seeding and the shared lock table
  - generic/workdays.go: Working-day calculator
*/
package leave

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hrms/generic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/warp/hrms/leave")

// ApplyInput is a leave application.
type ApplyInput struct {
	UserID    string
	OrgID     string
	StartDate generic.TimePoint
	EndDate   generic.TimePoint
	Type      string
	Reason    string
	NotifyTo  []string
}

// SetStatusInput is a status transition.
type SetStatusInput struct {
	RequestID       string
	Status          string
	ApproverID      string
	RejectionReason string
}

// Engine runs the leave workflow for one tenant.
type Engine struct {
	store    Store
	ledger   *Ledger
	holidays generic.HolidayCalendar
	users    UserDirectory
	now      func() time.Time
	logger   *slog.Logger
}

// NewEngine wires the workflow to a tenant's stores.
func NewEngine(store Store, ledger *Ledger, holidays generic.HolidayCalendar, users UserDirectory, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		ledger:   ledger,
		holidays: holidays,
		users:    users,
		now:      time.Now,
		logger:   logger.With("component", "leave"),
	}
}

// =============================================================================
// APPLY
// =============================================================================

// Apply validates and records a Pending request. Balance is checked but
// not deducted.
func (e *Engine) Apply(ctx context.Context, in ApplyInput) (_ *Request, err error) {
	ctx, span := tracer.Start(ctx, "leave.Apply", trace.WithAttributes(
		attribute.String("leave.user", in.UserID),
		attribute.String("leave.type", in.Type),
	))
	defer func() { endSpan(span, err) }()

	// 1. required fields
	leaveType, err := validateApply(in)
	if err != nil {
		return nil, err
	}

	// 2. range
	period := generic.Period{Start: in.StartDate, End: in.EndDate}
	if period.Validate() != nil {
		return nil, generic.Invalid("end_date", "start date cannot be after end date")
	}

	// Lookups that must not run inside the transaction. Their outcome is
	// reported at its place in the check order below.
	holidays, err := e.holidays.HolidaysBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	workingDays, err := generic.CountWorkingDays(period.Start, period.End, generic.HolidayDates(holidays))
	if err != nil {
		return nil, err
	}
	notifyTo := dedupe(in.NotifyTo)
	notifyValid := true
	if len(notifyTo) > 0 {
		n, err := e.users.CountUsers(ctx, notifyTo)
		if err != nil {
			return nil, err
		}
		notifyValid = n == len(notifyTo)
	}

	unlock := e.ledger.locks.Lock(in.UserID)
	defer unlock()

	var created Request
	err = e.store.WithTx(ctx, func(tx Store) error {
		// 3. overlap
		overlapping, err := tx.OverlappingRequests(ctx, in.UserID, period)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return &generic.ConflictError{
				Kind:       "leave_request",
				ExistingID: overlapping[0].ID,
				Message:    "a pending or approved request already covers part of " + period.String(),
			}
		}

		// 5. balance (4 was computed above)
		if leaveType.DeductsBalance() {
			available := decimal.Zero
			b, err := tx.GetBalance(ctx, in.UserID, period.Start.Year())
			if err != nil {
				return err
			}
			if b != nil {
				available = b.Get(leaveType)
			}
			requested := decimal.NewFromInt(int64(workingDays))
			if available.LessThan(requested) {
				return &generic.InsufficientBalanceError{
					UserID:    in.UserID,
					Category:  string(leaveType),
					Year:      period.Start.Year(),
					Available: available,
					Requested: requested,
				}
			}
		}

		// 6. notify targets
		if !notifyValid {
			return generic.Invalid("notify_to", "one or more users to notify are invalid")
		}

		now := e.now().UTC()
		created = Request{
			ID:          generic.NewID(),
			UserID:      in.UserID,
			OrgID:       in.OrgID,
			Period:      period,
			Type:        leaveType,
			Reason:      strings.TrimSpace(in.Reason),
			Status:      StatusPending,
			WorkingDays: workingDays,
			NotifyTo:    notifyTo,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.CreateRequest(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("leave applied",
		"request", created.ID, "user", created.UserID, "type", created.Type,
		"period", period.String(), "working_days", workingDays)
	return &created, nil
}

func validateApply(in ApplyInput) (Type, error) {
	var missing []string
	if in.UserID == "" {
		missing = append(missing, "user")
	}
	if in.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if in.EndDate.IsZero() {
		missing = append(missing, "end_date")
	}
	if strings.TrimSpace(in.Type) == "" {
		missing = append(missing, "leave_type")
	}
	if strings.TrimSpace(in.Reason) == "" {
		missing = append(missing, "reason")
	}
	if len(missing) > 0 {
		return "", &generic.ValidationError{Field: strings.Join(missing, ","), Message: "please provide all required fields"}
	}

	t, ok := ParseType(in.Type)
	if !ok {
		return "", generic.Invalid("leave_type", "unknown leave category %q", in.Type)
	}
	return t, nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// SetStatus moves a request to Approved, Rejected or Cancelled and applies
// the matching ledger adjustment.
func (e *Engine) SetStatus(ctx context.Context, in SetStatusInput) (_ *Request, err error) {
	ctx, span := tracer.Start(ctx, "leave.SetStatus", trace.WithAttributes(
		attribute.String("leave.request", in.RequestID),
		attribute.String("leave.status", in.Status),
	))
	defer func() { endSpan(span, err) }()

	target, ok := ParseTargetStatus(in.Status)
	if !ok {
		return nil, generic.Invalid("status", "must be one of Approved, Rejected or Cancelled")
	}
	reason := strings.TrimSpace(in.RejectionReason)
	if target == StatusRejected && reason == "" {
		return nil, generic.Invalid("rejection_reason", "please provide a reason for rejection")
	}

	current, err := e.store.GetRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &generic.NotFoundError{Kind: "leave request", ID: in.RequestID}
	}

	unlock := e.ledger.locks.Lock(current.UserID)
	defer unlock()

	var (
		updated Request
		from    Status
	)
	err = e.store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if req == nil {
			return &generic.NotFoundError{Kind: "leave request", ID: in.RequestID}
		}
		from = req.Status

		if err := e.adjustLedger(ctx, tx, *req, target); err != nil {
			return err
		}

		now := e.now().UTC()
		req.Status = target
		req.ApprovedBy = in.ApproverID
		req.ApprovedAt = &now
		req.RejectionReason = ""
		if target == StatusRejected {
			req.RejectionReason = reason
		}
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return err
		}
		updated = *req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("leave status changed",
		"request", updated.ID, "user", updated.UserID,
		"from", from, "to", updated.Status, "approver", in.ApproverID)
	return &updated, nil
}

// adjustLedger applies the balance side of a transition inside tx.
func (e *Engine) adjustLedger(ctx context.Context, tx Store, req Request, target Status) error {
	if !req.Type.DeductsBalance() || req.WorkingDays == 0 {
		return nil
	}
	days := decimal.NewFromInt(int64(req.WorkingDays))
	now := e.now().UTC()

	switch {
	case req.Status == StatusApproved && target != StatusApproved:
		// Credit back. Nothing to credit into without a row.
		b, err := tx.GetBalance(ctx, req.UserID, req.Year())
		if err != nil {
			return err
		}
		if b == nil {
			e.logger.Warn("no balance row to credit", "request", req.ID, "user", req.UserID, "year", req.Year())
			return nil
		}
		return adjust(ctx, tx, b, req.Type, days, now)

	case req.Status != StatusApproved && target == StatusApproved:
		b, err := e.ledger.getOrCreate(ctx, tx, req.UserID, req.Year())
		if err != nil {
			return err
		}
		available := b.Get(req.Type)
		if available.LessThan(days) {
			return &generic.InsufficientBalanceError{
				UserID:    req.UserID,
				Category:  string(req.Type),
				Year:      req.Year(),
				Available: available,
				Requested: days,
			}
		}
		return adjust(ctx, tx, b, req.Type, days.Neg(), now)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a request or a NotFoundError.
func (e *Engine) Get(ctx context.Context, id string) (*Request, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &generic.NotFoundError{Kind: "leave request", ID: id}
	}
	return req, nil
}

// List returns requests matching filter, newest first.
func (e *Engine) List(ctx context.Context, filter RequestFilter) ([]Request, error) {
	return e.store.ListRequests(ctx, filter)
}

// ListForUser returns the user's requests, newest first.
func (e *Engine) ListForUser(ctx context.Context, userID string) ([]Request, error) {
	return e.store.ListRequests(ctx, RequestFilter{UserID: userID})
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
