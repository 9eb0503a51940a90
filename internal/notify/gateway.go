// Package notify sends templated agreement email through an injected
// SMTP gateway. Delivery is fire-and-forget from the engine's point of
// view, but success or failure is always observable to the caller.
package notify

import "context"

// Template identifies one of the outbound email templates.
type Template string

const (
	// TemplateReviewRequest asks the reviewer to look at an agreement.
	TemplateReviewRequest Template = "review_request"
	// TemplateSignatureRequest asks the signer to sign.
	TemplateSignatureRequest Template = "signature_request"
	// TemplateSignedCopy confirms completion to signer and owner.
	TemplateSignedCopy Template = "signed_copy"
)

// Message is one outbound notification.
type Message struct {
	Template       Template
	RecipientName  string
	RecipientEmail string

	// Data feeds the template: contract number, organization name,
	// agreement link, and so on.
	Data map[string]string
}

// Sender is the sender identity for one dispatch. It is resolved from
// configuration per operation invocation and passed in explicitly.
type Sender struct {
	Name    string
	Address string
	ReplyTo string
}

// Gateway delivers notifications.
type Gateway interface {
	Send(ctx context.Context, from Sender, msg Message) error
}
