package core

import (
	"time"

	"github.com/pkg/errors"
)

var queryTimeLayouts = []string{time.RFC3339, "2006-01-02"}

// QueryTime is a time.Time bound from a query parameter: RFC3339 or YYYY-MM-DD (UTC).
type QueryTime struct {
	time.Time
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (qt *QueryTime) UnmarshalParam(param string) error {
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, param); err == nil {
			qt.Time = t.UTC()
			return nil
		}
	}
	return errors.Errorf("invalid time %q", param)
}

// EndOfDay returns the last instant of qt's day when qt was given as a plain date.
func (qt QueryTime) EndOfDay() time.Time {
	if qt.IsZero() || !qt.Equal(qt.Truncate(24*time.Hour)) {
		return qt.Time
	}
	return qt.Add(24*time.Hour - time.Nanosecond)
}
