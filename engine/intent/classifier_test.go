package intent

import (
	"testing"

	"github.com/quillhq/quill/engine/domain"
)

func TestClassify(t *testing.T) {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	tests := []struct {
		input string
		want  domain.Intent
	}{
		{"", domain.IntentUnknown},
		{"   ", domain.IntentUnknown},

		{"hi", domain.IntentGreeting},
		{"Hello", domain.IntentGreeting},
		{"good morning", domain.IntentGreeting},
		{"how are you?", domain.IntentGreeting},

		{"thanks", domain.IntentAcknowledgement},
		{"thank you", domain.IntentAcknowledgement},
		{"ok bye", domain.IntentAcknowledgement},
		{"that's all, goodbye", domain.IntentAcknowledgement},

		{"contact_us", domain.IntentContactRequest},
		{"Contact Us", domain.IntentContactRequest},
		{"I want to speak with someone from your team", domain.IntentContactRequest},
		{"how can i reach your sales team", domain.IntentContactRequest},
		{"business inquiry about pricing", domain.IntentContactRequest},

		{"schedule_demo", domain.IntentMeetingRequest},
		{"schedule a demo", domain.IntentMeetingRequest},
		{"can we book a meeting next week", domain.IntentMeetingRequest},
		{"I would like to schedule a call", domain.IntentMeetingRequest},
		{"demo request", domain.IntentMeetingRequest},

		{"our_services", domain.IntentServicesInquiry},
		{"what services do you offer", domain.IntentServicesInquiry},
		{"tell me about your automation capabilities", domain.IntentServicesInquiry},

		{"how does the billing pipeline work", domain.IntentDocumentQuery},
		{"what is the refund policy", domain.IntentDocumentQuery},
		// "email" must not trip the "ai" service keyword.
		{"where can I find the email templates documentation", domain.IntentDocumentQuery},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.input); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	// Contains meeting, contact and service vocabulary at once; the rule
	// order must resolve it the same way every time.
	input := "I want to schedule a meeting to talk about your ai services"
	want := c.Classify(input)
	for i := 0; i < 50; i++ {
		if got := c.Classify(input); got != want {
			t.Fatalf("run %d: got %s, want %s", i, got, want)
		}
	}
	if want != domain.IntentMeetingRequest {
		t.Errorf("mixed-vocabulary message classified as %s, want meeting_request", want)
	}
}

func TestNewClassifierRejectsBadPattern(t *testing.T) {
	rules := DefaultRules()
	rules.ContactPatterns = append(rules.ContactPatterns, `([unclosed`)
	if _, err := NewClassifier(rules); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
