package tenant

import (
	"log/slog"

	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/holiday"
	"github.com/warp/hrms/leave"
	"github.com/warp/hrms/user"
)

// Handle is the set of services bound to one tenant's database. Handles
// are created by the Registry and shared by every request for that tenant.
type Handle struct {
	Slug  string
	OrgID string

	Users      *user.Service
	Leave      *leave.Engine
	Ledger     *leave.Ledger
	Policies   *leave.PolicyService
	Holidays   *holiday.Service
	Attendance *attendance.Tracker

	storage Storage
}

func newHandle(org Organization, st Storage, logger *slog.Logger) *Handle {
	logger = logger.With("tenant", org.Slug)

	holidays := holiday.NewService(st, logger)
	ledger := leave.NewLedger(st, st, org.ID, logger)

	return &Handle{
		Slug:       org.Slug,
		OrgID:      org.ID,
		Users:      user.NewService(st, org.ID),
		Leave:      leave.NewEngine(st, ledger, holidays, st, logger),
		Ledger:     ledger,
		Policies:   leave.NewPolicyService(st, org.ID, logger),
		Holidays:   holidays,
		Attendance: attendance.NewTracker(st, org.ID, logger),
		storage:    st,
	}
}
