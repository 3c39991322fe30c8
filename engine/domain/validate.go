package domain

import (
	"regexp"
	"sort"
	"strings"
)

// Loose email shape check; real verification happens downstream of the
// notifier, this only rejects obvious garbage.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateContact checks a contact-form submission.
func ValidateContact(s ContactSubmission) error {
	if err := requireFields(map[string]string{
		"name":    s.Name,
		"email":   s.Email,
		"phone":   s.Phone,
		"message": s.Message,
	}); err != nil {
		return err
	}
	if !emailRegex.MatchString(strings.TrimSpace(s.Email)) {
		return &SubmissionError{Field: "email", Wrapped: ErrInvalidEmail}
	}
	return nil
}

// ValidateMeeting checks a meeting-request submission.
func ValidateMeeting(s MeetingSubmission) error {
	if err := requireFields(map[string]string{
		"name":           s.Name,
		"email":          s.Email,
		"phone":          s.Phone,
		"preferred_date": s.PreferredDate,
		"purpose":        s.Purpose,
	}); err != nil {
		return err
	}
	if !emailRegex.MatchString(strings.TrimSpace(s.Email)) {
		return &SubmissionError{Field: "email", Wrapped: ErrInvalidEmail}
	}
	return nil
}

func requireFields(fields map[string]string) error {
	// Deterministic order for stable error messages.
	for _, name := range sortedKeys(fields) {
		if strings.TrimSpace(fields[name]) == "" {
			return &SubmissionError{Field: name, Wrapped: ErrMissingField}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
