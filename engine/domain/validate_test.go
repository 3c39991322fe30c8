package domain

import (
	"errors"
	"testing"
)

func validContact() ContactSubmission {
	return ContactSubmission{
		SessionID: "s-1",
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Phone:     "+1 555 0100",
		Message:   "Interested in the automation offering.",
	}
}

func TestValidateContact_Valid(t *testing.T) {
	if err := ValidateContact(validContact()); err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
}

func TestValidateContact_MissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ContactSubmission)
	}{
		{"name", func(s *ContactSubmission) { s.Name = "" }},
		{"email", func(s *ContactSubmission) { s.Email = "  " }},
		{"phone", func(s *ContactSubmission) { s.Phone = "" }},
		{"message", func(s *ContactSubmission) { s.Message = "" }},
	}
	for _, tc := range cases {
		s := validContact()
		tc.mutate(&s)
		err := ValidateContact(s)
		if !errors.Is(err, ErrMissingField) {
			t.Errorf("%s: expected ErrMissingField, got %v", tc.name, err)
		}
		var se *SubmissionError
		if !errors.As(err, &se) || se.Field != tc.name {
			t.Errorf("%s: expected field %q in error, got %v", tc.name, tc.name, err)
		}
	}
}

func TestValidateContact_BadEmail(t *testing.T) {
	s := validContact()
	s.Email = "not-an-email"
	if err := ValidateContact(s); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestValidateMeeting(t *testing.T) {
	m := MeetingSubmission{
		SessionID:     "s-2",
		Name:          "Grace Hopper",
		Email:         "grace@example.com",
		Phone:         "+1 555 0101",
		PreferredDate: "2026-09-01 10:00",
		Purpose:       "Platform walkthrough",
	}
	if err := ValidateMeeting(m); err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}

	m.PreferredDate = ""
	if err := ValidateMeeting(m); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField for preferred_date, got %v", err)
	}
}

func TestContactStateString(t *testing.T) {
	if ContactIdle.String() != "idle" || ContactPending.String() != "contact_pending" ||
		ContactSubmitted.String() != "contact_submitted" {
		t.Errorf("unexpected state strings: %s %s %s",
			ContactIdle, ContactPending, ContactSubmitted)
	}
}
