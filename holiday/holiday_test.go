package holiday_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/holiday"
	"github.com/warp/hrms/store/sqlite"
)

func newService(t *testing.T) *holiday.Service {
	t.Helper()
	st, err := sqlite.NewTenant(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return holiday.NewService(st, nil)
}

func TestCreate_ValidatesAndTrims(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, holiday.Input{Date: generic.NewTimePoint(2025, time.May, 1)}, "admin")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = svc.Create(ctx, holiday.Input{Title: "Labour Day"}, "admin")
	assert.ErrorIs(t, err, generic.ErrValidation)

	h, err := svc.Create(ctx, holiday.Input{
		Title: "  Labour Day ", Date: generic.NewTimePoint(2025, time.May, 1), Description: " public ",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Labour Day", h.Title)
	assert.Equal(t, "public", h.Description)
	assert.Equal(t, "admin", h.CreatedBy)
}

func TestCreate_DuplicateDateAndTitleConflicts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	day := generic.NewTimePoint(2025, time.December, 25)

	_, err := svc.Create(ctx, holiday.Input{Title: "Christmas", Date: day}, "admin")
	require.NoError(t, err)

	_, err = svc.Create(ctx, holiday.Input{Title: "Christmas", Date: day}, "admin")
	assert.ErrorIs(t, err, generic.ErrConflict)

	// Same day, different title is fine
	_, err = svc.Create(ctx, holiday.Input{Title: "Office closed", Date: day}, "admin")
	assert.NoError(t, err)
}

func TestListYearAndRange(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, in := range []holiday.Input{
		{Title: "New Year", Date: generic.NewTimePoint(2025, time.January, 1)},
		{Title: "Independence", Date: generic.NewTimePoint(2025, time.August, 15)},
		{Title: "New Year", Date: generic.NewTimePoint(2026, time.January, 1)},
	} {
		_, err := svc.Create(ctx, in, "admin")
		require.NoError(t, err)
	}

	year, err := svc.ListYear(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, year, 2)
	assert.Equal(t, "2025-01-01", year[0].Date.String())
	assert.Equal(t, "2025-08-15", year[1].Date.String())

	between, err := svc.HolidaysBetween(ctx, generic.NewTimePoint(2025, time.August, 1), generic.NewTimePoint(2026, time.January, 1))
	require.NoError(t, err)
	assert.Len(t, between, 2)

	_, err = svc.HolidaysBetween(ctx, generic.NewTimePoint(2025, time.May, 2), generic.NewTimePoint(2025, time.May, 1))
	assert.True(t, errors.Is(err, generic.ErrInvalidRange))
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	h, err := svc.Create(ctx, holiday.Input{Title: "Retreat", Date: generic.NewTimePoint(2025, time.June, 2)}, "admin")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, h.ID, holiday.Input{Title: "Retreat", Date: generic.NewTimePoint(2025, time.June, 3)}, "hr")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-03", updated.Date.String())
	assert.Equal(t, "hr", updated.UpdatedBy)

	got, err := svc.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-03", got.Date.String())

	require.NoError(t, svc.Delete(ctx, h.ID))
	_, err = svc.Get(ctx, h.ID)
	assert.True(t, generic.IsNotFound(err))
	assert.ErrorIs(t, svc.Delete(ctx, h.ID), generic.ErrNotFound)

	_, err = svc.Update(ctx, "missing", holiday.Input{Title: "x", Date: generic.NewTimePoint(2025, time.June, 3)}, "hr")
	assert.True(t, generic.IsNotFound(err))
}
