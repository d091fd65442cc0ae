// Package dateparse converts heterogeneous cell values into calendar dates
// under an explicitly chosen format policy.
//
// Four policies are supported:
//
//   - generic:  2023-01-01, 2023/1/1, 2023-01, 2023/1 and ISO timestamps
//   - japanese: 2023年1月1日, 令和5年1月1日, 平成元年4月1日, 明治45年
//   - compact:  20230101 (exactly eight digits)
//   - serial:   spreadsheet day counts such as 45123 (epoch 1899-12-30)
//
// Parsing never fails for an individual value: anything that does not match
// becomes null and is counted by [Convert].
package dateparse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/textnorm"
)

// Policy selects how raw values are interpreted.
type Policy string

const (
	PolicyGeneric  Policy = "generic"
	PolicyJapanese Policy = "japanese"
	PolicyCompact  Policy = "compact"
	PolicySerial   Policy = "serial"
)

// Policies lists every supported policy in display order.
var Policies = []Policy{PolicyGeneric, PolicyJapanese, PolicyCompact, PolicySerial}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Policies {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown date policy %q", s)
}

// SerialEpoch is day zero of spreadsheet serial dates. It sits two days before
// 1900-01-01 so that serials line up with the leap-year quirk of the common
// spreadsheet tools.
var SerialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31; larger serials cannot be represented as dates.
const maxSerial = 2958465

// genericLayouts are tried in order; the first match wins.
var genericLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006-1",
	"2006/1",
	"2006-1-2T15:04:05Z07:00",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006/1/2T15:04:05",
	"2006.1.2",
	"20060102",
}

var compactRegex = regexp.MustCompile(`^\d{8}$`)

// Convert parses every value under the policy. It returns the date column
// values and the number of previously valid cells that became null.
func Convert(vals []dataset.Value, p Policy) ([]dataset.Value, int) {
	out := make([]dataset.Value, len(vals))
	lost := 0
	for i, v := range vals {
		if !v.Valid {
			out[i] = dataset.Null(dataset.KindDate)
			continue
		}
		t, ok := Parse(v, p)
		if !ok {
			out[i] = dataset.Null(dataset.KindDate)
			lost++
			continue
		}
		out[i] = dataset.Date(t)
	}
	return out, lost
}

// Parse converts one cell. Cells that are already dates pass through.
func Parse(v dataset.Value, p Policy) (time.Time, bool) {
	if !v.Valid {
		return time.Time{}, false
	}
	switch v.Kind {
	case dataset.KindDate:
		return v.Time, true
	case dataset.KindBool:
		return time.Time{}, false
	case dataset.KindNumeric:
		if p == PolicySerial {
			return FromSerial(v.Num)
		}
		return ParseString(dataset.FormatNumber(v.Num), p)
	default:
		return ParseString(v.Str, p)
	}
}

// ParseString converts one raw string under the policy.
func ParseString(s string, p Policy) (time.Time, bool) {
	switch p {
	case PolicySerial:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return time.Time{}, false
		}
		return FromSerial(f)
	case PolicyJapanese:
		return ParseJapanese(s)
	case PolicyCompact:
		return ParseCompact(s)
	default:
		return ParseGeneric(s)
	}
}

// ParseGeneric tries the common separator layouts in order.
func ParseGeneric(s string) (time.Time, bool) {
	s = textnorm.Normalize(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCompact accepts exactly YYYYMMDD.
func ParseCompact(s string) (time.Time, bool) {
	s = textnorm.Normalize(s)
	if !compactRegex.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FromSerial converts a spreadsheet serial day count. The fractional part is
// the time of day, rounded to the microsecond.
func FromSerial(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < -maxSerial || f > maxSerial {
		return time.Time{}, false
	}
	days := math.Floor(f)
	frac := f - days
	t := SerialEpoch.AddDate(0, 0, int(days))
	micros := math.Round(frac * 24 * 60 * 60 * 1e6)
	return t.Add(time.Duration(micros) * time.Microsecond), true
}
