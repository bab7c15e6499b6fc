package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateInfo is a date recovered from a photo's file name.
type DateInfo struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
	// HasClock is set when the name carried a time of day.
	HasClock bool
}

type namePattern struct {
	regex *regexp.Regexp
	clock bool
}

// Ordered from most to least specific. Groups: year, month, day[, hour, minute, second].
var namePatterns = []namePattern{
	// IMG_20190412_153012, 20190412-153012
	{regexp.MustCompile(`(?:^|\D)(\d{4})(\d{2})(\d{2})[_-](\d{2})(\d{2})(\d{2})(?:\D|$)`), true},
	// 2019-04-12 15.30.12, 2019-04-12_15-30-12
	{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[\s_](\d{2})[.\-](\d{2})[.\-](\d{2})`), true},
	// 2019-04-12, 2019_04_12
	{regexp.MustCompile(`(\d{4})[-_](\d{2})[-_](\d{2})`), false},
	// 20190412_description
	{regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})(?:\D|$)`), false},
}

// ParseDateFromFilename extracts a date from a photo file name such as
// IMG_20190412_153012.jpg or 2019-04-12_party.jpg.
func ParseDateFromFilename(filename string) (*DateInfo, error) {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	for _, p := range namePatterns {
		m := p.regex.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		info := &DateInfo{Year: atoi(m[1]), Month: atoi(m[2]), Day: atoi(m[3])}
		if p.clock {
			info.Hour, info.Minute, info.Second = atoi(m[4]), atoi(m[5]), atoi(m[6])
			info.HasClock = true
		}
		if info.valid() {
			return info, nil
		}
	}

	return nil, fmt.Errorf("could not parse date from filename: %s", filename)
}

func (d *DateInfo) valid() bool {
	if d.Year < 1800 || d.Year > 2100 || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return false
	}
	return d.Hour < 24 && d.Minute < 60 && d.Second < 60
}

// ToTime converts DateInfo to a time in the local zone; names without a
// clock default to noon.
func (d *DateInfo) ToTime() time.Time {
	if !d.HasClock {
		return time.Date(d.Year, time.Month(d.Month), d.Day, 12, 0, 0, 0, time.Local)
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, time.Local)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
