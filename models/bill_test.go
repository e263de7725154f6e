package models

import (
	"errors"
	"testing"
)

func TestParseFrequency(t *testing.T) {
	for _, s := range []string{"weekly", "monthly", "yearly"} {
		if _, err := ParseFrequency(s); err != nil {
			t.Errorf("ParseFrequency(%q) error = %v", s, err)
		}
	}
}

func TestParseFrequencyRejectsUnknown(t *testing.T) {
	// Typos must fail loudly, not behave like some default schedule.
	for _, s := range []string{"", "daily", "Monthly", "fortnightly"} {
		_, err := ParseFrequency(s)
		if !errors.Is(err, ErrInvalidFrequency) {
			t.Errorf("ParseFrequency(%q) = %v, want ErrInvalidFrequency", s, err)
		}
	}
}

func TestParseBillStatus(t *testing.T) {
	for _, s := range []string{"open", "paid", "overdue", "canceled"} {
		if _, err := ParseBillStatus(s); err != nil {
			t.Errorf("ParseBillStatus(%q) error = %v", s, err)
		}
	}
	if _, err := ParseBillStatus("archived"); err == nil {
		t.Error("ParseBillStatus(\"archived\") should fail")
	}
}

func TestParseRecurrenceStatus(t *testing.T) {
	for _, s := range []string{"active", "completed", "paused"} {
		if _, err := ParseRecurrenceStatus(s); err != nil {
			t.Errorf("ParseRecurrenceStatus(%q) error = %v", s, err)
		}
	}
	if _, err := ParseRecurrenceStatus("stopped"); err == nil {
		t.Error("ParseRecurrenceStatus(\"stopped\") should fail")
	}
}
