/*
Package holiday maintains a tenant's holiday calendar.

PURPOSE:
  Administrators curate the calendar; the leave engine reads it through
  generic.HolidayCalendar to exclude holidays from working-day counts.

UNIQUENESS:
  (date, title) is unique at the storage level. A duplicate insert or
  update surfaces as a ConflictError.

SEE ALSO:
  - generic/workdays.go: Consumer of holiday dates
  - store/sqlite/holidays.go: Store implementation
*/
package holiday

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/warp/hrms/generic"
)

// Store persists holidays. GetHoliday returns nil, nil when missing;
// DeleteHoliday returns generic.ErrNotFound. Create and update return
// generic.ErrConflict on a duplicate (date, title).
type Store interface {
	generic.HolidayCalendar
	CreateHoliday(ctx context.Context, h generic.Holiday) error
	GetHoliday(ctx context.Context, id string) (*generic.Holiday, error)
	UpdateHoliday(ctx context.Context, h generic.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
}

// Input is the editable part of a holiday.
type Input struct {
	Title       string
	Date        generic.TimePoint
	Description string
}

type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, now: time.Now, logger: logger.With("component", "holiday")}
}

// HolidaysBetween implements generic.HolidayCalendar.
func (s *Service) HolidaysBetween(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	if from.After(to) {
		return nil, generic.ErrInvalidRange
	}
	return s.store.HolidaysBetween(ctx, from, to)
}

// ListYear returns the year's holidays in date order.
func (s *Service) ListYear(ctx context.Context, year int) ([]generic.Holiday, error) {
	return s.store.HolidaysBetween(ctx, generic.StartOfYear(year), generic.EndOfYear(year))
}

func (s *Service) Create(ctx context.Context, in Input, actor string) (*generic.Holiday, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	h := generic.Holiday{
		ID:          generic.NewID(),
		Title:       strings.TrimSpace(in.Title),
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   actor,
		UpdatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateHoliday(ctx, h); err != nil {
		return nil, err
	}
	s.logger.Info("holiday created", "id", h.ID, "date", h.Date.String(), "title", h.Title)
	return &h, nil
}

func (s *Service) Get(ctx context.Context, id string) (*generic.Holiday, error) {
	h, err := s.store.GetHoliday(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &generic.NotFoundError{Kind: "holiday", ID: id}
	}
	return h, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input, actor string) (*generic.Holiday, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	h, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	h.Title = strings.TrimSpace(in.Title)
	h.Date = in.Date
	h.Description = strings.TrimSpace(in.Description)
	h.UpdatedBy = actor
	h.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateHoliday(ctx, *h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteHoliday(ctx, id); err != nil {
		return err
	}
	s.logger.Info("holiday deleted", "id", id)
	return nil
}

func validate(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return generic.Invalid("title", "is required")
	}
	if in.Date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	return nil
}
