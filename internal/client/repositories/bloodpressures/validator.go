package bloodpressures

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrSystolicEmpty             = errors.New("systolic is empty")
	ErrDiastolicEmpty            = errors.New("diastolic is empty")
	ErrSystolicTooLow            = errors.New("systolic is too low")
	ErrSystolicTooHigh           = errors.New("systolic is too high")
	ErrDiastolicTooLow           = errors.New("diastolic is too low")
	ErrDiastolicTooHigh          = errors.New("diastolic is too high")
	ErrSystolicLessThanDiastolic = errors.New("systolic is less than diastolic")
	errNotANumber                = errors.New("not a number")
)

const (
	minSystolic  = 70
	maxSystolic  = 300
	minDiastolic = 40
	maxDiastolic = 180
)

// Validate parses the readings as typed and checks them against the
// plausible range. The first failing rule is returned.
func Validate(systolic, diastolic string) (int, int, error) {
	systolic = strings.TrimSpace(systolic)
	diastolic = strings.TrimSpace(diastolic)

	if systolic == "" {
		return 0, 0, ErrSystolicEmpty
	}
	if diastolic == "" {
		return 0, 0, ErrDiastolicEmpty
	}

	s, err := strconv.Atoi(systolic)
	if err != nil {
		return 0, 0, errors.Join(ErrSystolicEmpty, errNotANumber)
	}
	d, err := strconv.Atoi(diastolic)
	if err != nil {
		return 0, 0, errors.Join(ErrDiastolicEmpty, errNotANumber)
	}

	if err := ValidateValues(s, d); err != nil {
		return 0, 0, err
	}
	return s, d, nil
}

// ValidateValues checks already-parsed readings.
func ValidateValues(systolic, diastolic int) error {
	switch {
	case systolic < minSystolic:
		return ErrSystolicTooLow
	case systolic > maxSystolic:
		return ErrSystolicTooHigh
	case diastolic < minDiastolic:
		return ErrDiastolicTooLow
	case diastolic > maxDiastolic:
		return ErrDiastolicTooHigh
	case systolic < diastolic:
		return ErrSystolicLessThanDiastolic
	}
	return nil
}
