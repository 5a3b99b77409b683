package domain

// Classify maps a raw HTTP status code from a probe to a tick status.
// Only 200 counts as Good; anything else (including 0, which validators
// send for transport failures) is Bad.
func Classify(code int) TickStatus {
	if code == 200 {
		return StatusGood
	}
	return StatusBad
}

// LatestTick picks the tick that defines a website's current status: the
// one with the greatest CreatedAt. Ties (two validators committing in the
// same instant) break on the lexically greater tick ID, so repeated calls
// on the same data always agree. Returns nil for an empty slice.
func LatestTick(ticks []Tick) *Tick {
	var latest *Tick
	for i := range ticks {
		t := &ticks[i]
		if latest == nil {
			latest = t
			continue
		}
		if t.CreatedAt.After(latest.CreatedAt) {
			latest = t
			continue
		}
		if t.CreatedAt.Equal(latest.CreatedAt) && t.ID > latest.ID {
			latest = t
		}
	}
	return latest
}

// DeriveStatus returns the current status for a website's tick set.
// No ticks means Unknown, never Good or Bad.
func DeriveStatus(ticks []Tick) TickStatus {
	t := LatestTick(ticks)
	if t == nil {
		return StatusUnknown
	}
	return t.Status
}
