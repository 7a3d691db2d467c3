package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Semester name limits.
const (
	MinSequenceNumber = 1
	MaxSequenceNumber = 10

	// YearsBack and YearsAhead bound the accepted year around the current one.
	YearsBack  = 10
	YearsAhead = 5

	twoDigitYearBase = 2000
)

var semesterNamePattern = regexp.MustCompile(`(?i)^S(\d+)-([A-Z]+)-(\d{2}|\d{4})$`)

// SemesterName is the decomposed form of "S<sequence>-<orgUnitCode>-<year>".
// Parts are populated whenever the shape matched, even if a range check
// failed, so messages can cite them.
type SemesterName struct {
	Valid          bool
	Matched        bool
	SequenceNumber int
	OrgUnitCode    string
	Year           int
	Errors         []string
}

// Canonical formats the parts back into a semester name with a 4-digit year
// and an upper-case org-unit code.
func (s SemesterName) Canonical() string {
	return FormatSemesterName(s.SequenceNumber, s.OrgUnitCode, s.Year)
}

// FormatSemesterName renders the canonical semester name.
func FormatSemesterName(sequence int, orgUnitCode string, year int) string {
	return fmt.Sprintf("S%d-%s-%d", sequence, strings.ToUpper(orgUnitCode), year)
}

// ResolveSemesterName parses and range-checks a semester name. It never
// fails; problems are accumulated in the result's Errors.
func ResolveSemesterName(name string, currentYear int) SemesterName {
	var res SemesterName

	m := semesterNamePattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Invalid semester name %q: expected S<sequence>-<org unit code>-<year>, e.g. S2-AID-2024", name))
		return res
	}
	res.Matched = true

	// The pattern guarantees digits; Atoi only fails on overflow.
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		seq = -1
	}
	res.SequenceNumber = seq
	res.OrgUnitCode = strings.ToUpper(m[2])

	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += twoDigitYearBase
	}
	res.Year = year

	if seq < MinSequenceNumber || seq > MaxSequenceNumber {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Semester sequence number %s is out of range (%d-%d)", m[1], MinSequenceNumber, MaxSequenceNumber))
	}

	minYear, maxYear := currentYear-YearsBack, currentYear+YearsAhead
	if year < minYear || year > maxYear {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Semester year %d is out of range (%d-%d)", year, minYear, maxYear))
	}

	res.Valid = len(res.Errors) == 0
	return res
}
