package domain

import (
	"testing"
	"time"
)

func TestFormatDuration_HoursAndMinutes(t *testing.T) {
	entry := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(90 * time.Minute)
	if got := FormatDuration(entry, exit); got != "1h 30m" {
		t.Errorf("expected 1h 30m, got %q", got)
	}
}

func TestFormatDuration_SubMinute(t *testing.T) {
	entry := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(45 * time.Second)
	if got := FormatDuration(entry, exit); got != "0h 0m" {
		t.Errorf("expected 0h 0m, got %q", got)
	}
}

func TestFormatDuration_NegativeClockSkew(t *testing.T) {
	entry := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(-5 * time.Minute)
	if got := FormatDuration(entry, exit); got != "0h 0m" {
		t.Errorf("expected 0h 0m, got %q", got)
	}
}

func TestFormatDuration_MultiDay(t *testing.T) {
	entry := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(26*time.Hour + 5*time.Minute)
	if got := FormatDuration(entry, exit); got != "26h 5m" {
		t.Errorf("expected 26h 5m, got %q", got)
	}
}
