package dbx

import (
	"database/sql"
	"fmt"
	"time"
)

// TimeLayout is a fixed-width UTC layout, so stored values sort
// lexicographically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// TimeArg encodes t for a TEXT column.
func TimeArg(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullTimeArg encodes an optional time; nil becomes NULL.
func NullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return TimeArg(*t)
}

// ScanTime returns a scanner that decodes a TEXT timestamp into dst.
func ScanTime(dst *time.Time) sql.Scanner {
	return timeScanner{dst: dst}
}

// ScanNullTime returns a scanner that decodes a nullable TEXT timestamp.
func ScanNullTime(dst **time.Time) sql.Scanner {
	return nullTimeScanner{dst: dst}
}

type timeScanner struct {
	dst *time.Time
}

func (s timeScanner) Scan(src any) error {
	t, ok, err := parseTime(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("dbx: NULL scanned into non-null time")
	}
	*s.dst = t
	return nil
}

type nullTimeScanner struct {
	dst **time.Time
}

func (s nullTimeScanner) Scan(src any) error {
	t, ok, err := parseTime(src)
	if err != nil {
		return err
	}
	if !ok {
		*s.dst = nil
		return nil
	}
	*s.dst = &t
	return nil
}

func parseTime(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case string:
		return parseTimeString(v)
	case []byte:
		return parseTimeString(string(v))
	default:
		return time.Time{}, false, fmt.Errorf("dbx: cannot scan %T into time", src)
	}
}

func parseTimeString(s string) (time.Time, bool, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("dbx: parse time %q: %w", s, err)
	}
	return t.UTC(), true, nil
}
