package generic

// CountWorkingDays counts the days in [start, end] that are neither Saturday,
// Sunday nor present in holidays. Both endpoints are included. Dates are
// compared at day granularity, so time-of-day never matters.
func CountWorkingDays(start, end TimePoint, holidays []TimePoint) (int, error) {
	period := Period{Start: start, End: end}
	if err := period.Validate(); err != nil {
		return 0, err
	}

	off := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		off[h.String()] = struct{}{}
	}

	count := 0
	for day := period.Start; day.BeforeOrEqual(period.End); day = day.AddDays(1) {
		if day.IsWeekend() {
			continue
		}
		if _, ok := off[day.String()]; ok {
			continue
		}
		count++
	}
	return count, nil
}
