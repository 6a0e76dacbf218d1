/*
Package generic provides the tenant-agnostic kernel of the HR service.

PURPOSE:
  Types and algorithms shared by every domain package and every tenant:
  calendar dates, date ranges, the working-day calculator, holiday lookup
  and the error taxonomy. Nothing here touches storage or a tenant.

KEY CONCEPTS:
  - TimePoint: A calendar day (time-of-day stripped)
  - Period: Inclusive date range with the half-open overlap test
  - CountWorkingDays: Business days in a range net of holidays
  - NewID: Record identifiers

SEE ALSO:
  - errors.go: Error taxonomy
  - workdays.go: Working-day calculator
  - leave/engine.go: Main consumer
*/
package generic

import (
	"github.com/google/uuid"
)

// NewID returns a random record identifier.
func NewID() string {
	return uuid.NewString()
}
