package model

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

// FormatDate は t を UTC の YYYY-MM-DD にする
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// NormalizeDate は YYYY-MM-DD または RFC 3339 の文字列を YYYY-MM-DD に揃える
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}

// ParseDate は YYYY-MM-DD または RFC 3339 の文字列を time.Time にパースする
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("invalid date " + s)
}
