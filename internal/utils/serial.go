package utils

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
	_ "time/tzdata"
)

var serialPattern = regexp.MustCompile(`^[1-9][0-9]{2}-[1-9][0-9]{2}-[1-9][0-9]{2}$`)

// serialGroup returns a random three digit group in [100,999]
func serialGroup() int {
	return 100 + rand.IntN(900)
}

// GenerateSerial generates a document serial in the NNN-NNN-NNN format
func GenerateSerial() string {
	return fmt.Sprintf("%d-%d-%d", serialGroup(), serialGroup(), serialGroup())
}

// IsValidSerial reports whether s has the NNN-NNN-NNN format with every group in [100,999]
func IsValidSerial(s string) bool {
	return serialPattern.MatchString(s)
}

// FormatIssueDate formats t as a pt-BR short date (dd/mm/yyyy) in loc
func FormatIssueDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02/01/2006")
}
