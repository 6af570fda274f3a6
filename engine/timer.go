package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/adhocore/gronx"
)

var iso8601DurationDateRegexp = regexp.MustCompile(`^P(\d+Y)?(\d+M)?(\d+W)?(\d+D)?$`)
var iso8601DurationTimeRegexp = regexp.MustCompile(`^(\d+H)?(\d+M)?(\d+S)?$`)

// ResolveDue calculates the point in time a timer becomes due.
//
// A timer definition is either an ISO 8601 duration (e.g. `PT1H`), added to
// the given time, or a CRON expression, resolved to its next tick.
func ResolveDue(timer string, t time.Time) (time.Time, error) {
	if strings.HasPrefix(timer, "P") {
		duration, err := NewISO8601Duration(timer)
		if err != nil {
			return time.Time{}, err
		}
		return duration.Calculate(t), nil
	}

	if !gronx.IsValid(timer) {
		return time.Time{}, fmt.Errorf("timer %s is neither an ISO 8601 duration nor a CRON expression", timer)
	}
	return gronx.NextTickAfter(timer, t, false)
}

func NewISO8601Duration(v string) (ISO8601Duration, error) {
	if v == "" {
		return ISO8601Duration(v), nil
	}

	s := strings.Split(v, "T")

	var valid bool
	if len(s) == 1 && len(s[0]) >= 3 { // e.g. P1D
		valid = iso8601DurationDateRegexp.MatchString(s[0])
	} else if len(s) == 2 {
		if len(s[0]) == 1 && s[0][0] == 'P' { // e.g. PT1S -> P
			valid = true
		} else { // e.g. P1DT1S -> P1D
			valid = iso8601DurationDateRegexp.MatchString(s[0])
		}

		if len(s[1]) >= 2 { // e.g. PT1S -> 1S
			valid = valid && iso8601DurationTimeRegexp.MatchString(s[1])
		} else {
			valid = false
		}
	}

	if !valid {
		return "", fmt.Errorf("failed to parse ISO 8601 duration %s", v)
	}

	return ISO8601Duration(v), nil
}

// ISO8601Duration is a duration in ISO 8601 format.
// The zero value has a duration of 0 seconds.
//
// see https://en.wikipedia.org/wiki/ISO_8601#Durations
type ISO8601Duration string

func (d ISO8601Duration) Calculate(t time.Time) time.Time {
	if d.IsZero() {
		return t
	}

	v := string(d)

	var isTime bool
	var l, n int
	for i, r := range v {
		if unicode.IsLetter(r) && l != 0 {
			n, _ = strconv.Atoi(v[i-l : i])
			l = 0
		} else if unicode.IsDigit(r) {
			l++
		}

		switch r {
		case 'Y':
			t = t.AddDate(n, 0, 0)
		case 'M':
			if isTime {
				t = t.Add(time.Duration(n) * time.Minute)
			} else {
				t = t.AddDate(0, n, 0)
			}
		case 'W':
			t = t.AddDate(0, 0, n*7)
		case 'D':
			t = t.AddDate(0, 0, n)
		case 'T':
			isTime = true
		case 'H':
			t = t.Add(time.Duration(n) * time.Hour)
		case 'S':
			t = t.Add(time.Duration(n) * time.Second)
		}
	}

	return t
}

func (d ISO8601Duration) IsZero() bool {
	return d == ""
}

func (d ISO8601Duration) String() string {
	return string(d)
}
