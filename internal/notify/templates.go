package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// Subject and body templates per Template id. Bodies are plain text; the
// agreement link is the only call to action.
var subjects = map[Template]string{
	TemplateReviewRequest:    "Review requested: agreement {{.contract_number}} from {{.organization}}",
	TemplateSignatureRequest: "Signature requested: agreement {{.contract_number}} from {{.organization}}",
	TemplateSignedCopy:       "Signed: agreement {{.contract_number}} with {{.organization}}",
}

var bodies = map[Template]string{
	TemplateReviewRequest: `Hi {{.recipient_name}},

{{.organization}} has asked you to review subscription agreement {{.contract_number}} before it is sent for signature.

Open the agreement here:

    {{.link}}

The link is personal and expires on {{.expires_at}}. Approving forwards the agreement to the signer.
`,
	TemplateSignatureRequest: `Hi {{.recipient_name}},

{{.organization}} has sent you subscription agreement {{.contract_number}} for signature.

Review and sign the agreement here:

    {{.link}}

The link is personal and expires on {{.expires_at}}.
`,
	TemplateSignedCopy: `Hi {{.recipient_name}},

Subscription agreement {{.contract_number}} with {{.organization}} has been signed by {{.signer_name}}.

The signed document is available here:

    {{.link}}

Document fingerprint (SHA-256): {{.document_hash}}
`,
}

// RenderTemplate produces the subject and body for a message.
func RenderTemplate(msg Message) (subject, body string, err error) {
	subjTmpl, ok := subjects[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown template %q", msg.Template)
	}
	subject, err = execute(string(msg.Template)+"_subject", subjTmpl, msg.Data)
	if err != nil {
		return "", "", err
	}
	body, err = execute(string(msg.Template)+"_body", bodies[msg.Template], msg.Data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func execute(name, text string, data map[string]string) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("notify: parse template %s: %w", name, err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("notify: execute template %s: %w", name, err)
	}
	return sb.String(), nil
}
