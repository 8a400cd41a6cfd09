package engine

import (
	"strings"
	"time"

	"agencydesk/internal/domain"
)

const (
	timeLayout   = time.RFC3339
	dateLayout   = "2006-01-02"
	periodLayout = "2006-01"
)

func validDate(field string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, *v); err != nil {
		return invalid(field, "must be YYYY-MM-DD")
	}
	return nil
}

func oneOf(field, v string, set []string) error {
	if !domain.OneOf(v, set) {
		return invalid(field, "must be one of "+strings.Join(set, ", "))
	}
	return nil
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func positive(field string, v int64) error {
	if v <= 0 {
		return invalid(field, "is required")
	}
	return nil
}
