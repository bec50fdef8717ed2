package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// HoursEntry is one line of a weekly schedule, e.g. {"Monday-Friday", "09:00-18:30"}.
type HoursEntry struct {
	Days  string
	Hours string
}

var dayNumbers = map[string]int{
	"Monday":    1,
	"Tuesday":   2,
	"Wednesday": 3,
	"Thursday":  4,
	"Friday":    5,
	"Saturday":  6,
	"Sunday":    7,
}

// EncodeHours converts a schedule into the "D,HHMM,HHMM;..." form accepted by
// the proposeedit hours field. Entries keep their input order.
//
//	EncodeHours([]HoursEntry{{"Monday", "09:00-18:30"}})        -> "1,0900,1830"
//	EncodeHours([]HoursEntry{{"Monday-Friday", "06:00-15:00"}}) -> "1,0600,1500;...;5,0600,1500"
func EncodeHours(schedule []HoursEntry) (string, error) {
	parts := make([]string, 0, len(schedule))
	for _, e := range schedule {
		seg, err := encodeEntry(e.Days, e.Hours)
		if err != nil {
			return "", err
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, ";"), nil
}

func encodeEntry(days, hours string) (string, error) {
	// time ranges are not validated; whatever the caller wrote goes on the wire
	span := strings.NewReplacer(":", "", "-", ",", " ", "").Replace(hours)

	tokens := strings.Split(days, "-")
	if len(tokens) > 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDayName, days)
	}
	start, err := dayNumber(tokens[0])
	if err != nil {
		return "", err
	}
	end := start
	if len(tokens) == 2 {
		if end, err = dayNumber(tokens[1]); err != nil {
			return "", err
		}
	}
	if end < start {
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, days)
	}

	segs := make([]string, 0, end-start+1)
	for d := start; d <= end; d++ {
		segs = append(segs, strconv.Itoa(d)+","+span)
	}
	return strings.Join(segs, ";"), nil
}

func dayNumber(name string) (int, error) {
	n, ok := dayNumbers[strings.TrimSpace(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDayName, name)
	}
	return n, nil
}
