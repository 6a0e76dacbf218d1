/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP API, kept apart from the domain types so storage
  and workflow fields can change without breaking clients.

NAMING CONVENTION:
  - *DTO:      Response types returned to clients
  - *Request:  Request body types from clients
  - *Response: Composite response wrappers

FORMATS:
  Dates are YYYY-MM-DD, timestamps RFC 3339 in UTC, day counts and
  allotments are decimal strings.

VALIDATION:
  Done by the domain services. DTOs only carry data.

SEE ALSO:
  - handlers.go and the per-area handler files
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/hrms/attendance"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/leave"
	"github.com/warp/hrms/tenant"
	"github.com/warp/hrms/user"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Tenant   string `json:"tenant,omitempty"`
}

type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      UserDTO `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// =============================================================================
// USERS
// =============================================================================

type UserDTO struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	Role             string `json:"role"`
	Active           bool   `json:"active"`
	Department       string `json:"department,omitempty"`
	Designation      string `json:"designation,omitempty"`
	EmploymentStatus string `json:"employment_status,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	Tenant           string `json:"tenant,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

type CreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	StartDate   string `json:"start_date"`
}

// UpdateUserRequest edits a profile. Absent fields are left unchanged.
type UpdateUserRequest struct {
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	Phone            *string `json:"phone"`
	Role             *string `json:"role"`
	Department       *string `json:"department"`
	Designation      *string `json:"designation"`
	EmploymentStatus *string `json:"employment_status"`
	StartDate        *string `json:"start_date"`
}

func toUserDTO(u user.User, tenantSlug string) UserDTO {
	dto := UserDTO{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Name:             u.FullName(),
		Phone:            u.Phone,
		Role:             string(u.Role),
		Active:           u.Active,
		Department:       u.Department,
		Designation:      u.Designation,
		EmploymentStatus: u.EmploymentStatus,
		Tenant:           tenantSlug,
		CreatedAt:        formatTimestamp(u.CreatedAt),
	}
	if u.StartDate != nil {
		dto.StartDate = u.StartDate.String()
	}
	return dto
}

func toUserDTOs(users []user.User, tenantSlug string) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = toUserDTO(u, tenantSlug)
	}
	return out
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

type OrganizationDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	ContactEmail       string `json:"contact_email"`
	Phone              string `json:"phone,omitempty"`
	Active             bool   `json:"active"`
	Plan               string `json:"plan"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionStart  string `json:"subscription_start,omitempty"`
	SubscriptionEnd    string `json:"subscription_end,omitempty"`
	CreatedAt          string `json:"created_at"`
}

type CreateOrganizationRequest struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	ContactEmail   string `json:"contact_email"`
	Phone          string `json:"phone"`
	Plan           string `json:"plan"`
	AdminFirstName string `json:"admin_first_name"`
	AdminLastName  string `json:"admin_last_name"`
	AdminPassword  string `json:"admin_password"`
}

type UpdateOrganizationRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Plan         string `json:"plan"`
}

type OnboardResponse struct {
	Organization      OrganizationDTO `json:"organization"`
	Admin             UserDTO         `json:"admin"`
	GeneratedPassword string          `json:"generated_password,omitempty"`
}

type PlatformStatsDTO struct {
	Provisioned int64    `json:"provisioned"`
	Open        []string `json:"open_tenants"`
}

func toOrganizationDTO(o tenant.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:                 o.ID,
		Name:               o.Name,
		Slug:               o.Slug,
		ContactEmail:       o.ContactEmail,
		Phone:              o.Phone,
		Active:             o.Active,
		Plan:               o.Subscription.Plan,
		SubscriptionStatus: o.Subscription.Status,
		SubscriptionStart:  formatTimestamp(o.Subscription.StartDate),
		SubscriptionEnd:    formatTimestamp(o.Subscription.EndDate),
		CreatedAt:          formatTimestamp(o.CreatedAt),
	}
}

// =============================================================================
// LEAVE
// =============================================================================

type ApplyLeaveRequest struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	LeaveType string   `json:"leave_type"`
	Reason    string   `json:"reason"`
	NotifyTo  []string `json:"notify_to"`
}

type SetStatusRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
}

type LeaveRequestDTO struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	LeaveType       string   `json:"leave_type"`
	Reason          string   `json:"reason"`
	Status          string   `json:"status"`
	WorkingDays     int      `json:"working_days"`
	NotifyTo        []string `json:"notify_to"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	ApprovedBy      string   `json:"approved_by,omitempty"`
	ApprovedAt      string   `json:"approved_at,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

func toLeaveRequestDTO(r leave.Request) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:              r.ID,
		UserID:          r.UserID,
		StartDate:       r.Period.Start.String(),
		EndDate:         r.Period.End.String(),
		LeaveType:       string(r.Type),
		Reason:          r.Reason,
		Status:          string(r.Status),
		WorkingDays:     r.WorkingDays,
		NotifyTo:        r.NotifyTo,
		RejectionReason: r.RejectionReason,
		ApprovedBy:      r.ApprovedBy,
		CreatedAt:       formatTimestamp(r.CreatedAt),
	}
	if dto.NotifyTo == nil {
		dto.NotifyTo = []string{}
	}
	if r.ApprovedAt != nil {
		dto.ApprovedAt = formatTimestamp(*r.ApprovedAt)
	}
	return dto
}

func toLeaveRequestDTOs(reqs []leave.Request) []LeaveRequestDTO {
	out := make([]LeaveRequestDTO, len(reqs))
	for i, r := range reqs {
		out[i] = toLeaveRequestDTO(r)
	}
	return out
}

// BalanceDTO lists remaining days per category.
type BalanceDTO struct {
	UserID    string                     `json:"user_id"`
	Year      int                        `json:"year"`
	Remaining map[string]decimal.Decimal `json:"remaining"`
	UpdatedAt string                     `json:"updated_at"`
}

type OverrideBalanceRequest struct {
	Year      int             `json:"year"`
	LeaveType string          `json:"leave_type"`
	Value     decimal.Decimal `json:"value"`
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	remaining := make(map[string]decimal.Decimal, len(leave.Types))
	for _, t := range leave.Types {
		remaining[string(t)] = b.Get(t)
	}
	return BalanceDTO{UserID: b.UserID, Year: b.Year, Remaining: remaining, UpdatedAt: formatTimestamp(b.UpdatedAt)}
}

// PolicyRequest sets a year's allotments. Omitted categories keep their
// value (or the fallback on a new policy).
type PolicyRequest struct {
	Year      int              `json:"year"`
	Paid      *decimal.Decimal `json:"paid"`
	Sick      *decimal.Decimal `json:"sick"`
	Emergency *decimal.Decimal `json:"emergency"`
	Maternity *decimal.Decimal `json:"maternity"`
	Paternity *decimal.Decimal `json:"paternity"`
	Unpaid    *decimal.Decimal `json:"unpaid"`
}

func (p PolicyRequest) allotments() map[leave.Type]*decimal.Decimal {
	return map[leave.Type]*decimal.Decimal{
		leave.TypePaid:      p.Paid,
		leave.TypeSick:      p.Sick,
		leave.TypeEmergency: p.Emergency,
		leave.TypeMaternity: p.Maternity,
		leave.TypePaternity: p.Paternity,
		leave.TypeUnpaid:    p.Unpaid,
	}
}

type PolicyDTO struct {
	ID         string                     `json:"id"`
	Year       int                        `json:"year"`
	Allotments map[string]decimal.Decimal `json:"allotments"`
	Active     bool                       `json:"active"`
	UpdatedAt  string                     `json:"updated_at"`
}

func toPolicyDTO(p leave.Policy) PolicyDTO {
	allotments := make(map[string]decimal.Decimal, len(leave.Types))
	for _, t := range leave.Types {
		allotments[string(t)] = p.Allotment(t)
	}
	return PolicyDTO{ID: p.ID, Year: p.Year, Allotments: allotments, Active: p.Active, UpdatedAt: formatTimestamp(p.UpdatedAt)}
}

type ApplyPolicyRequest struct {
	Year  int  `json:"year"`
	Reset bool `json:"reset"`
}

type ApplyPolicyResponse struct {
	Year    int `json:"year"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayRequest struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type HolidayDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{ID: h.ID, Title: h.Title, Date: h.Date.String(), Description: h.Description, CreatedBy: h.CreatedBy}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type ClockInRequest struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Notes     string   `json:"notes"`
}

type SessionDTO struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	ClockIn      string  `json:"clock_in"`
	ClockOut     string  `json:"clock_out,omitempty"`
	WorkingHours float64 `json:"working_hours"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
	Notes        string  `json:"notes,omitempty"`
}

type ClockOutResponse struct {
	Session    SessionDTO `json:"session"`
	TotalHours float64    `json:"total_hours_today"`
}

type DayStatusDTO struct {
	State      string  `json:"state"`
	ClockIn    string  `json:"clock_in,omitempty"`
	TotalHours float64 `json:"total_hours"`
}

type DaySummaryDTO struct {
	Date       string       `json:"date"`
	Status     string       `json:"status"`
	TotalHours float64      `json:"total_hours"`
	IsToday    bool         `json:"is_today"`
	Sessions   []SessionDTO `json:"sessions"`
}

type SummaryDTO struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Present    int             `json:"present"`
	HalfDays   int             `json:"half_days"`
	Absent     int             `json:"absent"`
	TotalHours float64         `json:"total_hours"`
	Days       []DaySummaryDTO `json:"days"`
}

func toSessionDTO(s attendance.Session) SessionDTO {
	dto := SessionDTO{
		ID:           s.ID,
		Date:         s.Day.String(),
		ClockIn:      formatTimestamp(s.ClockIn),
		WorkingHours: s.WorkingHours,
		Longitude:    s.Location.Longitude,
		Latitude:     s.Location.Latitude,
		Notes:        s.Notes,
	}
	if s.ClockOut != nil {
		dto.ClockOut = formatTimestamp(*s.ClockOut)
	}
	return dto
}

func toSummaryDTO(s attendance.Summary) SummaryDTO {
	dto := SummaryDTO{
		From:       s.From.String(),
		To:         s.To.String(),
		Present:    s.Present,
		HalfDays:   s.HalfDays,
		Absent:     s.Absent,
		TotalHours: s.TotalHours,
		Days:       make([]DaySummaryDTO, len(s.Days)),
	}
	for i, d := range s.Days {
		sessions := make([]SessionDTO, len(d.Sessions))
		for j, sess := range d.Sessions {
			sessions[j] = toSessionDTO(sess)
		}
		dto.Days[i] = DaySummaryDTO{
			Date:       d.Date.String(),
			Status:     d.Status,
			TotalHours: d.TotalHours,
			IsToday:    d.IsToday,
			Sessions:   sessions,
		}
	}
	return dto
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
