package generic

// =============================================================================
// PERIOD - An inclusive range of calendar days
// =============================================================================

// Period is the date range of a leave request, [Start, End] inclusive.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Validate returns ErrInvalidRange when End is before Start.
func (p Period) Validate() error {
	if p.Start.After(p.End) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps applies the half-open intersection test used for leave conflicts:
// p.Start < other.End AND p.End > other.Start. Ranges that only touch on a
// boundary day do not overlap.
func (p Period) Overlaps(other Period) bool {
	return p.Start.Before(other.End) && p.End.After(other.Start)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
