// Package intent maps a raw user message to one of a closed set of intents
// using an ordered rule list. Rules run in a fixed order and the first match
// wins, so classification is deterministic for a given rule set.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quillhq/quill/engine/domain"
)

// Rules holds the configurable inputs of the classifier. Pattern fields are
// regular expressions; value fields are exact matches against the cleaned
// message (quick-reply buttons send these verbatim).
type Rules struct {
	ContactValues  []string `yaml:"contact_values"`
	MeetingValues  []string `yaml:"meeting_values"`
	ServicesValues []string `yaml:"services_values"`

	GreetingPatterns        []string `yaml:"greeting_patterns"`
	AcknowledgementPatterns []string `yaml:"acknowledgement_patterns"`
	ContactPatterns         []string `yaml:"contact_patterns"`
	MeetingPatterns         []string `yaml:"meeting_patterns"`

	ServiceKeywords []string `yaml:"service_keywords"`
}

// DefaultRules returns the built-in rule set. Deployments tune these through
// configuration rather than editing code.
func DefaultRules() Rules {
	return Rules{
		ContactValues:  []string{"contact_us", "contact us", "contact"},
		MeetingValues:  []string{"schedule_demo", "schedule a demo", "schedule a meeting", "demo", "meeting"},
		ServicesValues: []string{"our_services", "our services", "services"},

		GreetingPatterns: []string{
			`^(hi|hello|hey|hii|hai|helo)$`,
			`^good\s+(morning|afternoon|evening)$`,
			`^how\s+are\s+you\??$`,
			`^what'?s\s*up\??$`,
			`^greetings?$`,
		},
		AcknowledgementPatterns: []string{
			`\b(bye|goodbye|thanks?|thank\s+you|that'?s\s+all|done|finished|exit|quit)\b`,
			`\b(no\s+more|nothing\s+else|i'?m\s+good|all\s+set)\b`,
		},
		ContactPatterns: []string{
			`(contact|connect|reach|get\s+in\s+touch|speak\s+with|talk\s+to).*(company|team|someone|you)`,
			`(want|need|would\s+like)\s+to.*(contact|connect|speak)`,
			`how\s+(can|do)\s+i.*(contact|reach|connect)`,
			`(email|phone|call).*company`,
			`business\s+(inquiry|enquiry)`,
			`sales\s+(team|contact|inquiry)`,
			`partnership.*opportunity`,
		},
		MeetingPatterns: []string{
			`(book|schedule|arrange).*(meeting|appointment|call|demo)`,
			`(want|need|would\s+like)\s+to.*(meet|schedule|book)`,
			`meeting\s+(request|booking)`,
			`(demo|consultation|appointment)\s+(request|booking)`,
		},
		ServiceKeywords: []string{
			"service", "services", "ai", "development", "chatbot",
			"automation", "offer", "provide", "capabilities", "solutions",
		},
	}
}

// Classifier assigns one intent to a message. Safe for concurrent use.
type Classifier struct {
	exact    map[string]domain.Intent
	greeting []*regexp.Regexp
	ack      []*regexp.Regexp
	contact  []*regexp.Regexp
	meeting  []*regexp.Regexp
	keywords []string
}

// NewClassifier compiles the rule set. Rules with invalid regular expressions
// are rejected up front rather than at classification time.
func NewClassifier(rules Rules) (*Classifier, error) {
	c := &Classifier{
		exact:    make(map[string]domain.Intent),
		keywords: rules.ServiceKeywords,
	}
	for _, v := range rules.ContactValues {
		c.exact[strings.ToLower(v)] = domain.IntentContactRequest
	}
	for _, v := range rules.MeetingValues {
		c.exact[strings.ToLower(v)] = domain.IntentMeetingRequest
	}
	for _, v := range rules.ServicesValues {
		c.exact[strings.ToLower(v)] = domain.IntentServicesInquiry
	}

	var err error
	if c.greeting, err = compileAll(rules.GreetingPatterns); err != nil {
		return nil, fmt.Errorf("intent: greeting rules: %w", err)
	}
	if c.ack, err = compileAll(rules.AcknowledgementPatterns); err != nil {
		return nil, fmt.Errorf("intent: acknowledgement rules: %w", err)
	}
	if c.contact, err = compileAll(rules.ContactPatterns); err != nil {
		return nil, fmt.Errorf("intent: contact rules: %w", err)
	}
	if c.meeting, err = compileAll(rules.MeetingPatterns); err != nil {
		return nil, fmt.Errorf("intent: meeting rules: %w", err)
	}
	return c, nil
}

// Classify returns the first matching intent for the message. Blank input is
// IntentUnknown; anything no rule claims falls through to IntentDocumentQuery
// so it reaches retrieval.
func (c *Classifier) Classify(text string) domain.Intent {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return domain.IntentUnknown
	}

	if it, ok := c.exact[clean]; ok {
		return it
	}
	if matchAny(c.greeting, clean) {
		return domain.IntentGreeting
	}
	if matchAny(c.ack, clean) {
		return domain.IntentAcknowledgement
	}
	// Meeting before contact: meeting phrasing is the more specific of the
	// two and often contains contact vocabulary.
	if matchAny(c.meeting, clean) {
		return domain.IntentMeetingRequest
	}
	if matchAny(c.contact, clean) {
		return domain.IntentContactRequest
	}
	if containsWord(clean, c.keywords) {
		return domain.IntentServicesInquiry
	}
	return domain.IntentDocumentQuery
}

// containsWord matches keywords against whole words only, so "ai" does not
// fire inside "email".
func containsWord(s string, keywords []string) bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, w := range words {
		for _, kw := range keywords {
			if w == kw {
				return true
			}
		}
	}
	return false
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out[i] = re
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
