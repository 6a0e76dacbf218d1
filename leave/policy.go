package leave

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hrms/generic"
)

// SetPolicyInput carries the categories to set. A nil entry means "not
// supplied": a new policy takes the fallback allotment, an existing one
// keeps its value.
type SetPolicyInput struct {
	Year       int
	Allotments map[Type]*decimal.Decimal
}

// PolicyService maintains per-year allotment templates for one organization.
// Changing a policy never touches existing balances; use
// Ledger.ApplyPolicyToAllEmployees for that.
type PolicyService struct {
	store  PolicyStore
	orgID  string
	now    func() time.Time
	logger *slog.Logger
}

// NewPolicyService binds a policy service to a tenant's store.
func NewPolicyService(store PolicyStore, orgID string, logger *slog.Logger) *PolicyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyService{store: store, orgID: orgID, now: time.Now, logger: logger.With("component", "policy")}
}

// Set creates or updates the policy for in.Year (current year when zero).
func (s *PolicyService) Set(ctx context.Context, in SetPolicyInput) (*Policy, error) {
	year := in.Year
	if year == 0 {
		year = s.now().Year()
	}
	if err := validYear(year); err != nil {
		return nil, err
	}
	for t, v := range in.Allotments {
		if v != nil && v.IsNegative() {
			return nil, generic.Invalid(string(t), "allotment must not be negative")
		}
	}

	existing, err := s.store.GetPolicy(ctx, s.orgID, year)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := existing
	if p == nil {
		p = &Policy{
			ID:         generic.NewID(),
			OrgID:      s.orgID,
			Year:       year,
			Allotments: make(map[Type]decimal.Decimal, len(Types)),
			Active:     true,
			CreatedAt:  now,
		}
		for _, t := range Types {
			p.Allotments[t] = FallbackAllotment(t)
		}
	}
	for t, v := range in.Allotments {
		if v != nil {
			p.Allotments[t] = *v
		}
	}
	p.UpdatedAt = now

	if err := s.store.SavePolicy(ctx, *p); err != nil {
		return nil, err
	}
	s.logger.Info("policy saved", "org", s.orgID, "year", year, "created", existing == nil)
	return p, nil
}

// Get returns the policy for year or a NotFoundError.
func (s *PolicyService) Get(ctx context.Context, year int) (*Policy, error) {
	p, err := s.store.GetPolicy(ctx, s.orgID, year)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &generic.NotFoundError{Kind: "leave policy", ID: strconv.Itoa(year)}
	}
	return p, nil
}

// List returns all policies, newest year first.
func (s *PolicyService) List(ctx context.Context) ([]Policy, error) {
	return s.store.ListPolicies(ctx, s.orgID)
}
