package models

import "time"

// Category buckets an inbox message for triage.
type Category string

const (
	CategoryOrder   Category = "order"
	CategoryInquiry Category = "inquiry"
	CategorySupport Category = "support"
	CategoryOther   Category = "other"
)

// EmailAddress is a sender or recipient with an address and optional display name.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Attachment is a file attached to an inbox message. Immutable once received.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	IsPDF       bool   `json:"is_pdf"`
}

// Email is one inbox message as returned by the message store.
type Email struct {
	ID             string        `json:"id"`
	Subject        string        `json:"subject"`
	From           EmailAddress  `json:"from"`
	To             []EmailAddress `json:"to"`
	Body           string        `json:"body"`
	ReceivedAt     time.Time     `json:"received_at"`
	HasAttachments bool          `json:"has_attachments"`
	Attachments    []*Attachment `json:"attachments,omitempty"`
	Category       Category      `json:"category"`
	IsRead         bool          `json:"is_read"`
}

// AttachmentByID returns the email's attachment with the given id, or nil.
func (e *Email) AttachmentByID(id string) *Attachment {
	for _, att := range e.Attachments {
		if att.ID == id {
			return att
		}
	}
	return nil
}
