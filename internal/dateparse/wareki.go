package dateparse

import (
	"strings"
	"time"

	"github.com/JonMunkholm/prep/internal/textnorm"
)

// Era is a Japanese imperial era. Offset is the Gregorian year of era year 1
// minus one.
type Era struct {
	Name   string
	Offset int
}

// Eras are checked most recent first. Transition years are not special-cased:
// 明治45年 and 大正1年 both resolve to 1912.
var Eras = []Era{
	{Name: "令和", Offset: 2018},
	{Name: "平成", Offset: 1988},
	{Name: "昭和", Offset: 1925},
	{Name: "大正", Offset: 1911},
	{Name: "明治", Offset: 1867},
}

const (
	yearMark  = "年"
	monthMark = "月"
	dayMark   = "日"
	firstYear = "元年"
)

// ParseJapanese converts wareki or Gregorian kanji dates.
//
// With an era marker the month and day are optional ("明治45年" is January 1st).
// Without one the value must be "YYYY年M月D日" or "YYYY年M月".
func ParseJapanese(s string) (time.Time, bool) {
	s = textnorm.Normalize(s)
	s = strings.ReplaceAll(s, firstYear, "1"+yearMark)

	idx := strings.Index(s, yearMark)
	if idx < 0 {
		return time.Time{}, false
	}
	yearTok, rest := s[:idx], s[idx+len(yearMark):]

	for _, era := range Eras {
		if !strings.Contains(yearTok, era.Name) {
			continue
		}
		n, ok := digits(strings.Replace(yearTok, era.Name, "", 1))
		if !ok || n < 1 {
			return time.Time{}, false
		}
		return monthDay(n+era.Offset, rest, true)
	}

	if len(yearTok) != 4 {
		return time.Time{}, false
	}
	year, ok := digits(yearTok)
	if !ok {
		return time.Time{}, false
	}
	return monthDay(year, rest, false)
}

// monthDay parses the "M月D日" tail. Day defaults to 1; a missing month is
// only accepted when bareYear is set.
func monthDay(year int, rest string, bareYear bool) (time.Time, bool) {
	if rest == "" {
		if !bareYear {
			return time.Time{}, false
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	mi := strings.Index(rest, monthMark)
	if mi < 0 {
		return time.Time{}, false
	}
	month, ok := digits(rest[:mi])
	if !ok {
		return time.Time{}, false
	}

	day := 1
	if tail := strings.TrimSuffix(rest[mi+len(monthMark):], dayMark); tail != "" {
		if day, ok = digits(tail); !ok {
			return time.Time{}, false
		}
	}
	return calendarDate(year, month, day)
}

// calendarDate rejects dates that time.Date would silently normalize.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// digits parses a non-empty run of ASCII digits.
func digits(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
