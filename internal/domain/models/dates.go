package models

import (
	"strings"
	"time"
)

// GestationDays is the bovine gestation length used to project calving.
const GestationDays = 283

// ExpectedCalving projects the calving date of a conception on d.
func ExpectedCalving(d time.Time) time.Time {
	return d.AddDate(0, 0, GestationDays)
}

// EstimatedConception walks a birth date back by one gestation.
func EstimatedConception(birth time.Time) time.Time {
	return birth.AddDate(0, 0, -GestationDays)
}

// Days converts a day count to a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// WithinDays reports whether t lies inside [ref-days, ref+days].
func WithinDays(t, ref time.Time, days int) bool {
	return AbsDuration(t.Sub(ref)) <= Days(days)
}

// AbsDuration returns |d|.
func AbsDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// ValidDate drops zero timestamps so they are never persisted as sentinels.
func ValidDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

// DatePtr returns a pointer to a copy of t.
func DatePtr(t time.Time) *time.Time {
	return &t
}

// NormalizeTag folds a user-entered tag for equality checks.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// SameTag compares two tags after normalization; empty tags never match.
func SameTag(a, b string) bool {
	na := NormalizeTag(a)
	return na != "" && na == NormalizeTag(b)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// cloneSlice copies s while keeping nil and empty distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// insertByDate keeps the history ordered by date; equal dates keep insertion order.
func insertByDate[T any](items []T, item T, date func(T) time.Time) []T {
	at := len(items)
	d := date(item)
	for i := range items {
		if date(items[i]).After(d) {
			at = i
			break
		}
	}
	items = append(items, item)
	copy(items[at+1:], items[at:])
	items[at] = item
	return items
}
