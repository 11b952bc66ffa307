package core

import (
	"math"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStrings cleans every string in ss and drops the empty ones.
func CleanStrings(ss []string, lower ...bool) []string {
	if ss == nil {
		return nil
	}
	cleaned := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = CleanString(s, lower...); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// ContainsFold reports whether any of vals contains substr, ignoring case.
func ContainsFold(substr string, vals ...string) bool {
	substr = strings.ToLower(substr)
	for _, v := range vals {
		if strings.Contains(strings.ToLower(v), substr) {
			return true
		}
	}
	return false
}

func StringInSlice(s string, ss []string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// RoundMoney rounds amount to 2 decimals.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
