package agenda

import (
	"fmt"
	"sort"
	"time"
)

// TimeSlot is a half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// SlotFinder computes free appointment slots inside business hours.
type SlotFinder struct {
	// Open and Close are offsets from local midnight, e.g. 9h and 19h.
	Open  time.Duration
	Close time.Duration
	// Step is the spacing between candidate start times.
	Step     time.Duration
	Location *time.Location

	now func() time.Time
}

// NewSlotFinder creates a slot finder. A nil location means UTC and a
// non-positive step means 30 minutes.
func NewSlotFinder(open, close, step time.Duration, loc *time.Location) *SlotFinder {
	if loc == nil {
		loc = time.UTC
	}
	if step <= 0 {
		step = 30 * time.Minute
	}
	return &SlotFinder{Open: open, Close: close, Step: step, Location: loc, now: time.Now}
}

// Window returns the business hours of the calendar day containing day,
// interpreted in the finder's location.
func (sf *SlotFinder) Window(day time.Time) TimeSlot {
	d := day.In(sf.Location)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, sf.Location)
	return TimeSlot{Start: midnight.Add(sf.Open), End: midnight.Add(sf.Close)}
}

// FindAvailableSlots returns every slot of the given duration that starts on
// a Step boundary inside the day's business hours, does not start in the
// past, and does not intersect any busy interval.
func (sf *SlotFinder) FindAvailableSlots(day time.Time, duration time.Duration, busy []TimeSlot) []TimeSlot {
	free := []TimeSlot{}
	if duration <= 0 {
		return free
	}

	// 1. Merge overlapping busy times
	merged := mergeOverlappingSlots(busy)

	// 2. Walk the window and keep the candidates that miss every busy block
	window := sf.Window(day)
	now := sf.now()
	j := 0
	for cur := window.Start; !cur.Add(duration).After(window.End); cur = cur.Add(sf.Step) {
		if cur.Before(now) {
			continue
		}
		slot := TimeSlot{Start: cur, End: cur.Add(duration)}

		// merged is sorted; blocks ending at or before this start never matter again
		for j < len(merged) && !merged[j].End.After(slot.Start) {
			j++
		}
		if j < len(merged) && merged[j].overlaps(slot) {
			continue
		}
		free = append(free, slot)
	}
	return free
}

// mergeOverlappingSlots merges overlapping or adjacent busy slots. The input
// is not modified.
func mergeOverlappingSlots(slots []TimeSlot) []TimeSlot {
	if len(slots) == 0 {
		return nil
	}

	sorted := make([]TimeSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []TimeSlot{sorted[0]}
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !current.Start.After(last.End) {
			if current.End.After(last.End) {
				last.End = current.End
			}
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
