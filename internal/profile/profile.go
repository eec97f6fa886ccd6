// Package profile loads intraday volume profiles: contiguous time buckets,
// each carrying the share of the day's traded volume expected in it. Files
// are read through the ingest core, checked as a whole, and queried for
// cumulative and normalized volume between clock times.
package profile

import (
	"fmt"
	"time"
)

// BucketType labels a trading session phase.
type BucketType string

const (
	PreOpen      BucketType = "POS"
	Continuous   BucketType = "CTS"
	Lunch        BucketType = "L"
	CloseAuction BucketType = "CAS"
)

// Description is the long name used when printing entries.
func (b BucketType) Description() string {
	switch b {
	case PreOpen:
		return "pre open session"
	case Continuous:
		return "continuous trading session"
	case Lunch:
		return "lunch break"
	case CloseAuction:
		return "close auction session"
	}
	return string(b)
}

// expectedMinutes is the total session length each bucket type must add up
// to. Types absent from a profile are not checked.
var expectedMinutes = map[BucketType]int64{
	PreOpen:      30,
	CloseAuction: 10,
	Lunch:        60,
	Continuous:   330,
}

// ClockLayout is the bucket time format.
const ClockLayout = "15:04"

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return clockOf(t), nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	return time.Time{}.Add(d).Format(ClockLayout)
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

// Entry is one bucket. Start and End are offsets from midnight; Percentage
// is a fraction of daily volume (0.25 means a quarter).
type Entry struct {
	Start      time.Duration
	End        time.Duration
	Percentage float64
	Type       BucketType
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s-%s] %.2f%% (%s)", FormatClock(e.Start), FormatClock(e.End), e.Percentage*100, e.Type.Description())
}

func (e Entry) span() string { return FormatClock(e.Start) + "-" + FormatClock(e.End) }

// Profile is an immutable, validated bucket list in time order.
type Profile struct {
	entries []Entry
	byStart map[time.Duration]int
	source  string
}

func newProfile(source string, entries []Entry) *Profile {
	p := &Profile{entries: entries, byStart: make(map[time.Duration]int, len(entries)), source: source}
	for i, e := range entries {
		p.byStart[e.Start] = i
	}
	return p
}

// Source is the file the profile came from, or "twap" when generated.
func (p *Profile) Source() string { return p.source }

// Len reports the number of buckets.
func (p *Profile) Len() int { return len(p.entries) }

// Entries returns a copy of the buckets.
func (p *Profile) Entries() []Entry { return append([]Entry(nil), p.entries...) }

// Entry returns the bucket starting exactly at start.
func (p *Profile) Entry(start time.Duration) (Entry, bool) {
	i, ok := p.byStart[start]
	if !ok {
		return Entry{}, false
	}
	return p.entries[i], true
}

// CumulativePercentage is the expected volume share traded in [start, end).
// Buckets partly inside the window contribute pro rata by overlap.
func (p *Profile) CumulativePercentage(start, end time.Duration) (float64, error) {
	if end <= start {
		return 0, fmt.Errorf("profile: end %s must be after start %s", FormatClock(end), FormatClock(start))
	}
	var sum float64
	for _, e := range p.entries {
		lo, hi := max(e.Start, start), min(e.End, end)
		if hi <= lo {
			continue
		}
		width := e.End - e.Start
		if width <= 0 {
			continue
		}
		if lo == e.Start && hi == e.End {
			sum += e.Percentage
			continue
		}
		sum += e.Percentage * float64(hi-lo) / float64(width)
	}
	return sum, nil
}

// NormalizedTarget is the fraction of the [start, end) volume expected to be
// done by t. It is 0 when the window carries no volume.
func (p *Profile) NormalizedTarget(t, start, end time.Duration) (float64, error) {
	if end <= start {
		return 0, fmt.Errorf("profile: end %s must be after start %s", FormatClock(end), FormatClock(start))
	}
	if t < start || t > end {
		return 0, fmt.Errorf("profile: %s is outside %s-%s", FormatClock(t), FormatClock(start), FormatClock(end))
	}
	total, _ := p.CumulativePercentage(start, end)
	if total == 0 || t == start {
		return 0, nil
	}
	done, _ := p.CumulativePercentage(start, t)
	return done / total, nil
}
