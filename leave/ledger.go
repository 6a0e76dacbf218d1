/*
ledger.go - Per-user, per-year leave balances

PURPOSE:
  Owns creation and bulk maintenance of LeaveBalance rows. The workflow
  engine is the only caller that debits or credits a balance; handlers
  read balances through GetOrCreate and change them only through the
  administrative Override.

SEEDING:
  A missing (user, year) row is created from the organization's policy for
  that year when one exists, else from the fallback allotments
  (paid=12, sick=8, emergency=4, others 0).

POLICY APPLICATION:
  ApplyPolicyToAllEmployees walks every active user:
  - row missing      -> create from policy        (created++)
  - reset = true     -> overwrite every category  (updated++)
  - reset = false    -> raise a category only when the policy value is
                        higher; never lowers a balance (updated++)

CONCURRENCY:
  Every read-modify-write on a user's balance happens under that user's
  lock and inside one storage transaction. Stores reject stale writes via
  the Version token.

SEE ALSO:
  - engine.go: Debits on approval, credits when leaving Approved
  - policy.go: Policy upserts
*/
package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hrms/generic"
)

// ApplyResult summarises ApplyPolicyToAllEmployees.
type ApplyResult struct {
	Created int
	Updated int
	Total   int
}

// Ledger manages balances for one tenant.
type Ledger struct {
	store  Store
	users  UserDirectory
	orgID  string
	locks  *keyedMutex
	now    func() time.Time
	logger *slog.Logger
}

// NewLedger creates a ledger bound to one tenant's store.
func NewLedger(store Store, users UserDirectory, orgID string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  store,
		users:  users,
		orgID:  orgID,
		locks:  newKeyedMutex(),
		now:    time.Now,
		logger: logger.With("component", "ledger"),
	}
}

// GetOrCreate returns the user's balance for year, creating it from the
// policy (or fallbacks) when missing.
func (l *Ledger) GetOrCreate(ctx context.Context, userID string, year int) (*Balance, error) {
	if userID == "" {
		return nil, generic.Invalid("user", "is required")
	}
	if err := validYear(year); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	var out *Balance
	err := l.store.WithTx(ctx, func(tx Store) error {
		b, err := l.getOrCreate(ctx, tx, userID, year)
		out = b
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns the balance without creating it (nil when absent).
func (l *Ledger) Find(ctx context.Context, userID string, year int) (*Balance, error) {
	return l.store.GetBalance(ctx, userID, year)
}

// getOrCreate must run inside a transaction with the user's lock held.
func (l *Ledger) getOrCreate(ctx context.Context, tx Store, userID string, year int) (*Balance, error) {
	b, err := tx.GetBalance(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}

	policy, err := tx.GetPolicy(ctx, l.orgID, year)
	if err != nil {
		return nil, err
	}

	seeded := l.seed(userID, year, policy)
	if err := tx.CreateBalance(ctx, seeded); err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}
	l.logger.Debug("balance created", "user", userID, "year", year, "from_policy", policy != nil)
	return &seeded, nil
}

func (l *Ledger) seed(userID string, year int, policy *Policy) Balance {
	now := l.now().UTC()
	b := Balance{
		ID:        generic.NewID(),
		UserID:    userID,
		OrgID:     l.orgID,
		Year:      year,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, t := range Types {
		if policy != nil {
			b.Set(t, policy.Allotment(t))
		} else {
			b.Set(t, FallbackAllotment(t))
		}
	}
	return b
}

// ApplyPolicyToAllEmployees pushes the year's policy onto every active
// user's balance. Fails with NotFoundError when no policy exists for year.
func (l *Ledger) ApplyPolicyToAllEmployees(ctx context.Context, year int, reset bool) (ApplyResult, error) {
	if err := validYear(year); err != nil {
		return ApplyResult{}, err
	}

	policy, err := l.store.GetPolicy(ctx, l.orgID, year)
	if err != nil {
		return ApplyResult{}, err
	}
	if policy == nil {
		return ApplyResult{}, &generic.NotFoundError{Kind: "leave policy", ID: strconv.Itoa(year)}
	}

	ids, err := l.users.ActiveUserIDs(ctx)
	if err != nil {
		return ApplyResult{}, err
	}

	result := ApplyResult{Total: len(ids)}
	for _, id := range ids {
		created, err := l.applyToUser(ctx, id, *policy, reset)
		if err != nil {
			return result, fmt.Errorf("apply policy to %s: %w", id, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	l.logger.Info("policy applied",
		"org", l.orgID, "year", year, "reset", reset,
		"created", result.Created, "updated", result.Updated, "total", result.Total)
	return result, nil
}

func (l *Ledger) applyToUser(ctx context.Context, userID string, policy Policy, reset bool) (bool, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	created := false
	err := l.store.WithTx(ctx, func(tx Store) error {
		b, err := tx.GetBalance(ctx, userID, policy.Year)
		if err != nil {
			return err
		}
		if b == nil {
			created = true
			return tx.CreateBalance(ctx, l.seed(userID, policy.Year, &policy))
		}

		for _, t := range Types {
			target := policy.Allotment(t)
			if reset || target.GreaterThan(b.Get(t)) {
				b.Set(t, target)
			}
		}
		b.UpdatedAt = l.now().UTC()
		return tx.UpdateBalance(ctx, *b)
	})
	return created, err
}

// Override sets one category to an absolute value. Administrative use only.
func (l *Ledger) Override(ctx context.Context, userID string, year int, t Type, value decimal.Decimal) (*Balance, error) {
	if value.IsNegative() {
		return nil, generic.Invalid("value", "must not be negative")
	}
	if err := validYear(year); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	var out *Balance
	err := l.store.WithTx(ctx, func(tx Store) error {
		b, err := l.getOrCreate(ctx, tx, userID, year)
		if err != nil {
			return err
		}
		b.Set(t, value)
		b.UpdatedAt = l.now().UTC()
		if err := tx.UpdateBalance(ctx, *b); err != nil {
			return err
		}
		b.Version++
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// adjust credits (positive delta) or debits (negative delta) a category.
// Runs inside the caller's transaction with the user's lock held.
func adjust(ctx context.Context, tx Store, b *Balance, t Type, delta decimal.Decimal, now time.Time) error {
	b.Set(t, b.Get(t).Add(delta))
	b.UpdatedAt = now
	if err := tx.UpdateBalance(ctx, *b); err != nil {
		if generic.IsRetryable(err) {
			return err
		}
		return fmt.Errorf("failed to update balance: %w", err)
	}
	b.Version++
	return nil
}

func validYear(year int) error {
	if year < 1970 || year > 9999 {
		return generic.Invalid("year", "%d is out of range", year)
	}
	return nil
}
