package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/engine/rag"
)

// Classifier assigns an intent to a message.
type Classifier interface {
	Classify(text string) domain.Intent
}

// Retriever pulls ranked chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error)
}

// Synthesizer turns retrieved chunks into answer text. The bool reports
// whether the answer was grounded in context.
type Synthesizer interface {
	Answer(ctx context.Context, it domain.Intent, question string, chunks []domain.ScoredChunk) (string, bool)
}

// Canned turn texts.
const (
	welcomeText = "**Welcome!**\n\nI'm here to help you explore our services and documentation. Ask me anything, or book a meeting with our team."

	closingText = "**Thanks for stopping by!**\n\nBefore you go, our team would be happy to walk you through what we can do for your business."

	contactFormText = "**Let's get you connected.**\n\nShare a few quick details and our team will reach out shortly:\n\n- Full name\n- Email address\n- Phone number\n- Brief message"

	contactDoneText = "We already have your details. Our team will be in touch shortly. Is there anything else I can help you with?"

	meetingFormText = "**Let's book your meeting.**\n\nJust provide a few details:\n\n- Full name\n- Email address\n- Phone number\n- Preferred date and time\n- Topics to discuss"

	helpText = "I'm here to help! Try one of these options to get started."

	notInitializedText = "Please initialize the system first before asking questions."
)

// Machine routes one chat turn through intent classification, session state
// and retrieval.
type Machine struct {
	classifier  Classifier
	retriever   Retriever
	synthesizer Synthesizer
	sessions    *SessionStore
	opts        rag.Options
	logger      *slog.Logger
}

// NewMachine creates a dialogue machine.
func NewMachine(classifier Classifier, retriever Retriever, synthesizer Synthesizer, sessions *SessionStore, opts rag.Options, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		classifier:  classifier,
		retriever:   retriever,
		synthesizer: synthesizer,
		sessions:    sessions,
		opts:        opts,
		logger:      logger,
	}
}

// Respond handles one chat turn. It returns the session ID (minted when the
// caller had none) and a complete reply; user-facing failures degrade to
// canned text rather than errors.
func (m *Machine) Respond(ctx context.Context, sessionID, message string) (string, domain.Reply) {
	sess, release := m.sessions.Acquire(sessionID)
	defer release()

	it := m.classifier.Classify(message)
	m.logger.Info("chat turn", "session", sess.ID, "intent", it, "contact_state", sess.contact)

	var reply domain.Reply
	switch it {
	case domain.IntentGreeting:
		reply = domain.Reply{Response: welcomeText, QuickReplies: starterReplies}

	case domain.IntentAcknowledgement:
		reply = domain.Reply{Response: closingText, QuickReplies: closingReplies}

	case domain.IntentContactRequest:
		reply = m.contactTurn(sess)

	case domain.IntentMeetingRequest:
		// Re-triggering the meeting flow is always allowed.
		reply = domain.Reply{Response: meetingFormText, MeetingForm: true, QuickReplies: contactAltReplies}

	case domain.IntentUnknown:
		reply = domain.Reply{Response: helpText, QuickReplies: starterReplies}

	default: // document_query, services_inquiry
		reply = m.queryTurn(ctx, it, message)
	}
	return sess.ID, reply
}

// contactTurn emits the contact form until the lead handoff marks the session
// submitted; after that the form is never offered again.
func (m *Machine) contactTurn(sess *Session) domain.Reply {
	switch sess.contact {
	case domain.ContactSubmitted:
		return domain.Reply{Response: contactDoneText, QuickReplies: starterReplies}
	case domain.ContactIdle:
		sess.contact = domain.ContactPending
	}
	return domain.Reply{Response: contactFormText, ContactForm: true, QuickReplies: meetingAltReplies}
}

func (m *Machine) queryTurn(ctx context.Context, it domain.Intent, message string) domain.Reply {
	chunks, err := m.retriever.Retrieve(ctx, message, m.opts.DepthFor(it))
	if err != nil {
		if errors.Is(err, domain.ErrNotInitialized) {
			return domain.Reply{Response: notInitializedText, QuickReplies: starterReplies}
		}
		m.logger.Error("retrieval failed", "intent", it, "err", err)
		return domain.Reply{Response: rag.FallbackAnswer, QuickReplies: starterReplies}
	}

	text, grounded := m.synthesizer.Answer(ctx, it, message, chunks)
	qr := starterReplies
	if grounded {
		qr = contextualReplies(text)
	}
	return domain.Reply{Response: text, QuickReplies: qr}
}

// Quick-reply sets. Values round-trip through the classifier: form values
// map to their intents, the rest land in retrieval.
var (
	starterReplies = []domain.QuickReply{
		{Text: "Services", Value: "our_services"},
		{Text: "Products", Value: "products"},
		{Text: "Book a Meeting", Value: "schedule_demo"},
		{Text: "Contact Us", Value: "contact_us"},
	}
	closingReplies = []domain.QuickReply{
		{Text: "Book a Meeting", Value: "schedule_demo"},
		{Text: "Services", Value: "our_services"},
		{Text: "Contact Us", Value: "contact_us"},
	}
	meetingAltReplies = []domain.QuickReply{
		{Text: "Services", Value: "our_services"},
		{Text: "Products", Value: "products"},
		{Text: "Book a Meeting", Value: "schedule_demo"},
	}
	contactAltReplies = []domain.QuickReply{
		{Text: "Services", Value: "our_services"},
		{Text: "Products", Value: "products"},
		{Text: "Contact Us", Value: "contact_us"},
	}
)

// contextualReplies picks up to five follow-up buttons from the vocabulary of
// the answer itself, so suggestions track what was just discussed.
func contextualReplies(answer string) []domain.QuickReply {
	lower := strings.ToLower(answer)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	var buttons []domain.QuickReply
	switch {
	case has("service", "development", "solution", "automation"):
		buttons = []domain.QuickReply{
			{Text: "Products", Value: "products"},
			{Text: "Book a Meeting", Value: "schedule_demo"},
			{Text: "Contact Us", Value: "contact_us"},
		}
	case has("demo", "meeting", "consultation", "discuss"):
		buttons = []domain.QuickReply{
			{Text: "Book a Meeting", Value: "schedule_demo"},
			{Text: "Contact Us", Value: "contact_us"},
			{Text: "Services", Value: "our_services"},
		}
	case has("contact", "support", "team"):
		buttons = []domain.QuickReply{
			{Text: "Contact Us", Value: "contact_us"},
			{Text: "Services", Value: "our_services"},
		}
	default:
		buttons = starterReplies
	}
	if len(buttons) > 5 {
		buttons = buttons[:5]
	}
	return buttons
}
