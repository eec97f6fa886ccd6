package profile

import "time"

// TWAP returns the generated fallback profile: a 09:00-09:30 pre-open
// bucket, one-minute continuous buckets 09:30-12:00 and 13:00-16:00, a
// zero-weight lunch bucket and a 16:00-16:10 close auction. Every non-lunch
// bucket gets the same weight.
func TWAP() *Profile {
	const (
		morning   = 150
		afternoon = 180
	)
	buckets := 1 + morning + afternoon + 1
	w := 1 / float64(buckets)

	h := func(hh, mm int) time.Duration { return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute }

	entries := make([]Entry, 0, buckets+1)
	entries = append(entries, Entry{Start: h(9, 0), End: h(9, 30), Percentage: w, Type: PreOpen})
	for i := 0; i < morning; i++ {
		s := h(9, 30) + time.Duration(i)*time.Minute
		entries = append(entries, Entry{Start: s, End: s + time.Minute, Percentage: w, Type: Continuous})
	}
	entries = append(entries, Entry{Start: h(12, 0), End: h(13, 0), Type: Lunch})
	for i := 0; i < afternoon; i++ {
		s := h(13, 0) + time.Duration(i)*time.Minute
		entries = append(entries, Entry{Start: s, End: s + time.Minute, Percentage: w, Type: Continuous})
	}
	entries = append(entries, Entry{Start: h(16, 0), End: h(16, 10), Percentage: w, Type: CloseAuction})
	return newProfile("twap", entries)
}
