// Package domain defines the core types, intents, and error taxonomy shared
// by the Quill engine packages. It also acts as the validation gate for
// lead-capture submissions entering the system.
package domain

import "time"

// DocumentFormat tags the source format of an ingested document.
type DocumentFormat string

const (
	FormatPlainText DocumentFormat = "text"
	FormatMarkdown  DocumentFormat = "markdown"
	FormatPDF       DocumentFormat = "pdf"
)

// Document is a raw source document. Immutable once chunked.
type Document struct {
	ID     string         `json:"id"`     // source path or name
	Name   string         `json:"name"`   // base file name
	Text   string         `json:"text"`   // extracted raw text
	Format DocumentFormat `json:"format"`
}

// Chunk is a bounded contiguous span of a document's text, the unit of
// retrieval. Offset/End are byte offsets into the document text so that the
// original can be reconstructed from the non-overlapping prefixes.
type Chunk struct {
	DocID  string `json:"doc_id"`
	Source string `json:"source"` // document name, carried for provenance
	Index  int    `json:"index"`  // ordered position within the document
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	End    int    `json:"end"`
}

// ScoredChunk is a chunk returned from retrieval with its similarity score.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// Intent is the classified purpose of a user message, drawn from a closed set.
type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentDocumentQuery   Intent = "document_query"
	IntentContactRequest  Intent = "contact_request"
	IntentMeetingRequest  Intent = "meeting_request"
	IntentServicesInquiry Intent = "services_inquiry"
	IntentAcknowledgement Intent = "acknowledgement"
	IntentUnknown         Intent = "unknown"
)

// QuickReply is a suggested next user input offered as a tappable option.
type QuickReply struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Reply is the structured response for one chat turn.
type Reply struct {
	Response     string       `json:"response"`
	ContactForm  bool         `json:"contact_form"`
	MeetingForm  bool         `json:"meeting_form"`
	QuickReplies []QuickReply `json:"quick_replies"`
}

// ContactState tracks the contact-capture flow within a session.
type ContactState int

const (
	// ContactIdle means no contact form has been offered yet.
	ContactIdle ContactState = iota
	// ContactPending means the form was offered but not submitted.
	ContactPending
	// ContactSubmitted is terminal: the form is never re-offered.
	ContactSubmitted
)

func (s ContactState) String() string {
	switch s {
	case ContactIdle:
		return "idle"
	case ContactPending:
		return "contact_pending"
	case ContactSubmitted:
		return "contact_submitted"
	default:
		return "unknown"
	}
}

// ContactSubmission is the payload of a submitted contact form.
type ContactSubmission struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

// MeetingSubmission is the payload of a submitted meeting-request form.
type MeetingSubmission struct {
	SessionID     string `json:"session_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PreferredDate string `json:"preferred_date"`
	Purpose       string `json:"purpose"`
}

// DocFailure records one document that failed ingestion.
type DocFailure struct {
	Document string `json:"document"`
	Reason   string `json:"reason"`
}

// IngestReport summarizes one full ingestion run.
type IngestReport struct {
	DocumentsIndexed int          `json:"documents_indexed"`
	ChunksIndexed    int          `json:"chunks_indexed"`
	Failures         []DocFailure `json:"failures,omitempty"`
	StartedAt        time.Time    `json:"started_at"`
	Duration         string       `json:"duration"`
}
