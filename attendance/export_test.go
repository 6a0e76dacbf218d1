package attendance

import "time"

// SetClock replaces the tracker's time source.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }
