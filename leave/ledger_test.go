package leave_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/leave"
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestGetOrCreate_SeedsFallbacksWithoutPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.employee(t, "alice@acme.com")

	b, err := f.ledger.GetOrCreate(ctx, alice, 2025)
	require.NoError(t, err)

	expected := map[leave.Type]int64{
		leave.TypePaid:      12,
		leave.TypeSick:      8,
		leave.TypeEmergency: 4,
		leave.TypeMaternity: 0,
		leave.TypePaternity: 0,
		leave.TypeUnpaid:    0,
	}
	for typ, days := range expected {
		assert.True(t, decimal.NewFromInt(days).Equal(b.Get(typ)), "%s: got %s", typ, b.Get(typ))
	}

	// Second call returns the same row
	again, err := f.ledger.GetOrCreate(ctx, alice, 2025)
	require.NoError(t, err)
	assert.Equal(t, b.ID, again.ID)
}

func TestGetOrCreate_SeedsFromPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.employee(t, "alice@acme.com")

	_, err := f.policies.Set(ctx, leave.SetPolicyInput{
		Year:       2025,
		Allotments: map[leave.Type]*decimal.Decimal{leave.TypePaid: dec(20), leave.TypeMaternity: dec(90)},
	})
	require.NoError(t, err)

	b, err := f.ledger.GetOrCreate(ctx, alice, 2025)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(b.Get(leave.TypePaid)))
	assert.True(t, decimal.NewFromInt(90).Equal(b.Get(leave.TypeMaternity)))
	assert.True(t, decimal.NewFromInt(8).Equal(b.Get(leave.TypeSick)), "unset categories take the fallback")
}

func TestGetOrCreate_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.GetOrCreate(context.Background(), "", 2025)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.ledger.GetOrCreate(context.Background(), "someone", 1200)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestApplyPolicy_TopUpNeverLowers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rich := f.employee(t, "rich@acme.com")
	poor := f.employee(t, "poor@acme.com")
	fresh := f.employee(t, "fresh@acme.com")

	// GIVEN: existing balances above and below the coming policy
	f.setPaid(t, rich, 2025, 20)
	f.setPaid(t, poor, 2025, 2)
	_, err := f.policies.Set(ctx, leave.SetPolicyInput{
		Year:       2025,
		Allotments: map[leave.Type]*decimal.Decimal{leave.TypePaid: dec(15)},
	})
	require.NoError(t, err)

	// WHEN: applying without reset
	result, err := f.ledger.ApplyPolicyToAllEmployees(ctx, 2025, false)
	require.NoError(t, err)

	// THEN: raised only where the policy is higher; missing row created
	assert.Equal(t, leave.ApplyResult{Created: 1, Updated: 2, Total: 3}, result)
	assert.True(t, decimal.NewFromInt(20).Equal(f.paid(t, rich, 2025)))
	assert.True(t, decimal.NewFromInt(15).Equal(f.paid(t, poor, 2025)))
	assert.True(t, decimal.NewFromInt(15).Equal(f.paid(t, fresh, 2025)))
}

func TestApplyPolicy_ResetOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rich := f.employee(t, "rich@acme.com")
	f.setPaid(t, rich, 2025, 20)

	_, err := f.policies.Set(ctx, leave.SetPolicyInput{
		Year:       2025,
		Allotments: map[leave.Type]*decimal.Decimal{leave.TypePaid: dec(15)},
	})
	require.NoError(t, err)

	result, err := f.ledger.ApplyPolicyToAllEmployees(ctx, 2025, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.True(t, decimal.NewFromInt(15).Equal(f.paid(t, rich, 2025)))
}

func TestApplyPolicy_SkipsInactiveUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	active := f.employee(t, "active@acme.com")
	gone := f.employee(t, "gone@acme.com")
	_, err := f.users.ToggleActive(ctx, gone)
	require.NoError(t, err)

	_, err = f.policies.Set(ctx, leave.SetPolicyInput{Year: 2025})
	require.NoError(t, err)

	result, err := f.ledger.ApplyPolicyToAllEmployees(ctx, 2025, false)
	require.NoError(t, err)
	assert.Equal(t, leave.ApplyResult{Created: 1, Total: 1}, result)

	b, err := f.ledger.Find(ctx, gone, 2025)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.True(t, decimal.NewFromInt(12).Equal(f.paid(t, active, 2025)))
}

func TestApplyPolicy_MissingPolicy(t *testing.T) {
	f := newFixture(t)
	f.employee(t, "alice@acme.com")

	_, err := f.ledger.ApplyPolicyToAllEmployees(context.Background(), 2025, false)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestOverride_RejectsNegative(t *testing.T) {
	f := newFixture(t)
	alice := f.employee(t, "alice@acme.com")

	_, err := f.ledger.Override(context.Background(), alice, 2025, leave.TypePaid, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestUpdateBalance_StaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.employee(t, "alice@acme.com")

	b, err := f.ledger.GetOrCreate(ctx, alice, 2025)
	require.NoError(t, err)

	// GIVEN: a writer bumps the version
	fresh := *b
	fresh.Set(leave.TypePaid, decimal.NewFromInt(1))
	require.NoError(t, f.store.UpdateBalance(ctx, fresh))

	// WHEN: a second writer uses the old version
	stale := *b
	stale.Set(leave.TypePaid, decimal.NewFromInt(99))
	err = f.store.UpdateBalance(ctx, stale)

	// THEN
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)
	assert.True(t, generic.IsRetryable(err))
	assert.True(t, decimal.NewFromInt(1).Equal(f.paid(t, alice, 2025)))
}

// =============================================================================
// POLICIES
// =============================================================================

func TestPolicySet_NewFillsFallbacksUpdateKeepsUnsupplied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.policies.Set(ctx, leave.SetPolicyInput{
		Year:       2026,
		Allotments: map[leave.Type]*decimal.Decimal{leave.TypeSick: dec(10)},
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(12).Equal(p.Allotment(leave.TypePaid)))
	assert.True(t, decimal.NewFromInt(10).Equal(p.Allotment(leave.TypeSick)))

	updated, err := f.policies.Set(ctx, leave.SetPolicyInput{
		Year:       2026,
		Allotments: map[leave.Type]*decimal.Decimal{leave.TypePaid: dec(18)},
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)

	stored, err := f.policies.Get(ctx, 2026)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(18).Equal(stored.Allotment(leave.TypePaid)))
	assert.True(t, decimal.NewFromInt(10).Equal(stored.Allotment(leave.TypeSick)))
}

func TestPolicySet_ValidationAndOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.policies.Set(ctx, leave.SetPolicyInput{
		Year:       2025,
		Allotments: map[leave.Type]*decimal.Decimal{leave.TypePaid: dec(-3)},
	})
	assert.ErrorIs(t, err, generic.ErrValidation)

	for _, year := range []int{2024, 2026, 2025} {
		_, err := f.policies.Set(ctx, leave.SetPolicyInput{Year: year})
		require.NoError(t, err)
	}
	all, err := f.policies.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{2026, 2025, 2024}, []int{all[0].Year, all[1].Year, all[2].Year})

	_, err = f.policies.Get(ctx, 2030)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}
