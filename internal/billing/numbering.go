package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const numberPrefix = "BILL-"

// FormatNumber renders BILL-YYYYMMDD-NNNN for the seq-th bill of day.
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%s-%04d", numberPrefix, day.Format("20060102"), seq)
}

// ParseNumber splits a bill number into its day and sequence.
func ParseNumber(number string) (time.Time, int, error) {
	rest, ok := strings.CutPrefix(number, numberPrefix)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("billing: bill number %q lacks prefix", number)
	}
	datePart, seqPart, ok := strings.Cut(rest, "-")
	if !ok || len(seqPart) < 4 {
		return time.Time{}, 0, fmt.Errorf("billing: malformed bill number %q", number)
	}
	day, err := time.Parse("20060102", datePart)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("billing: bill number %q has bad date: %w", number, err)
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq <= 0 {
		return time.Time{}, 0, fmt.Errorf("billing: bill number %q has bad sequence", number)
	}
	return day, seq, nil
}
