/*
types.go - Leave domain types

PURPOSE:
  Defines leave categories, request statuses, and the three tenant-scoped
  records the workflow operates on: Request, Balance and Policy.

CATEGORIES:
  paid, sick, emergency, maternity, paternity, unpaid
  "unpaid" is exempt from balance checks and never touches the ledger.

FALLBACK ALLOTMENTS (no policy for the year):
  paid=12, sick=8, emergency=4, everything else 0

SEE ALSO:
  - engine.go: Request state machine
  - ledger.go: Balance creation, seeding and policy application
*/
package leave

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hrms/generic"
)

// =============================================================================
// CATEGORIES
// =============================================================================

// Type is a leave category.
type Type string

const (
	TypePaid      Type = "paid"
	TypeSick      Type = "sick"
	TypeEmergency Type = "emergency"
	TypeMaternity Type = "maternity"
	TypePaternity Type = "paternity"
	TypeUnpaid    Type = "unpaid"
)

// Types lists every category in storage column order.
var Types = []Type{TypePaid, TypeSick, TypeEmergency, TypeMaternity, TypePaternity, TypeUnpaid}

var fallbackAllotments = map[Type]int64{
	TypePaid:      12,
	TypeSick:      8,
	TypeEmergency: 4,
}

// FallbackAllotment is the seed value used when no policy exists.
func FallbackAllotment(t Type) decimal.Decimal {
	return decimal.NewFromInt(fallbackAllotments[t])
}

// ParseType accepts the category name or its display form ("Paid Leave").
func ParseType(s string) (Type, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, " leave")
	s = strings.TrimSuffix(s, "leaves")
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// DeductsBalance reports whether approving this category debits the ledger.
func (t Type) DeductsBalance() bool {
	return t != TypeUnpaid
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the workflow state of a Request.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// ParseTargetStatus accepts only statuses a transition may move to.
func ParseTargetStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusApproved, StatusRejected, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// =============================================================================
// RECORDS
// =============================================================================

// Request is a leave application. Requests are never deleted.
type Request struct {
	ID              string
	UserID          string
	OrgID           string
	Period          generic.Period
	Type            Type
	Reason          string
	Status          Status
	RejectionReason string
	WorkingDays     int
	NotifyTo        []string
	ApprovedBy      string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Year is the ledger year the request draws from.
func (r Request) Year() int {
	return r.Period.Start.Year()
}

// Balance holds one user's remaining days per category for one year.
// Version is the optimistic concurrency token checked on update.
type Balance struct {
	ID        string
	UserID    string
	OrgID     string
	Year      int
	Remaining map[Type]decimal.Decimal
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Get returns the remaining days for t (zero when unset).
func (b Balance) Get(t Type) decimal.Decimal {
	return b.Remaining[t]
}

// Set replaces the remaining days for t.
func (b *Balance) Set(t Type, v decimal.Decimal) {
	if b.Remaining == nil {
		b.Remaining = make(map[Type]decimal.Decimal, len(Types))
	}
	b.Remaining[t] = v
}

// Policy is the per-organization, per-year allotment template.
type Policy struct {
	ID         string
	OrgID      string
	Year       int
	Allotments map[Type]decimal.Decimal
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Allotment returns the allotment for t (zero when unset).
func (p Policy) Allotment(t Type) decimal.Decimal {
	return p.Allotments[t]
}

// =============================================================================
// STORAGE INTERFACES
// =============================================================================

// RequestFilter narrows List.
type RequestFilter struct {
	UserID string
	Status Status
}

// RequestStore persists leave requests. GetRequest returns nil, nil when the
// request does not exist.
type RequestStore interface {
	CreateRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	UpdateRequest(ctx context.Context, r Request) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)

	// OverlappingRequests returns the user's Pending/Approved requests that
	// intersect period under the half-open test.
	OverlappingRequests(ctx context.Context, userID string, period generic.Period) ([]Request, error)
}

// BalanceStore persists ledger rows. UpdateBalance must fail with
// generic.ErrConcurrentModification when b.Version no longer matches, and
// increments the stored version on success.
type BalanceStore interface {
	GetBalance(ctx context.Context, userID string, year int) (*Balance, error)
	CreateBalance(ctx context.Context, b Balance) error
	UpdateBalance(ctx context.Context, b Balance) error
}

// PolicyStore persists policies. GetPolicy returns nil, nil when absent.
type PolicyStore interface {
	GetPolicy(ctx context.Context, orgID string, year int) (*Policy, error)
	SavePolicy(ctx context.Context, p Policy) error
	ListPolicies(ctx context.Context, orgID string) ([]Policy, error)
}

// Store is the tenant's leave storage. WithTx runs fn against a
// transaction-scoped Store and commits only if fn returns nil.
type Store interface {
	RequestStore
	BalanceStore
	PolicyStore
	WithTx(ctx context.Context, fn func(Store) error) error
}

// UserDirectory answers the user questions the workflow asks.
type UserDirectory interface {
	CountUsers(ctx context.Context, ids []string) (int, error)
	ActiveUserIDs(ctx context.Context) ([]string, error)
}
