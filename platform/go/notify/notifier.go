package notify

import (
	"context"
	"strings"
	"text/template"
)

// RegistrationInfo is the slice of record data the notification templates
// render from.
type RegistrationInfo struct {
	Email    string
	Name     string
	Category string
	State    string
}

// Delivery is the typed outcome of a best-effort send. Callers may log a
// failed delivery but must never propagate it as a user-facing failure.
type Delivery struct {
	Delivered bool
	Err       error
}

// Notifier dispatches the two lifecycle notifications. Implementations are
// best-effort: a transport error is reported through Delivery, never as a
// panic or a blocking retry.
type Notifier interface {
	RegistrationInitiated(ctx context.Context, info RegistrationInfo) Delivery
	RegistrationStateChanged(ctx context.Context, info RegistrationInfo) Delivery
}

var (
	initiatedSubjectTmpl = template.Must(template.New("initiated-subject").Parse(
		`Registration received`,
	))
	initiatedBodyTmpl = template.Must(template.New("initiated-body").Parse(
		`Dear {{.Name}},

Your {{.Category}} registration has been received and is awaiting review.
We will notify you when its status changes.

This is an automated message; replies are not monitored.
`))
	stateChangedSubjectTmpl = template.Must(template.New("state-changed-subject").Parse(
		`Registration status update: {{.State}}`,
	))
	stateChangedBodyTmpl = template.Must(template.New("state-changed-body").Parse(
		`Dear {{.Name}},

The status of your {{.Category}} registration changed to: {{.State}}.
Sign in to the portal to review any requested corrections.

This is an automated message; replies are not monitored.
`))
)

// RenderInitiated produces the subject and body of the "registration initiated" mail.
func RenderInitiated(info RegistrationInfo) (subject, body string, err error) {
	return render(initiatedSubjectTmpl, initiatedBodyTmpl, info)
}

// RenderStateChanged produces the subject and body of the "state changed" mail.
func RenderStateChanged(info RegistrationInfo) (subject, body string, err error) {
	return render(stateChangedSubjectTmpl, stateChangedBodyTmpl, info)
}

func render(subjectTmpl, bodyTmpl *template.Template, info RegistrationInfo) (string, string, error) {
	var subject, body strings.Builder
	if err := subjectTmpl.Execute(&subject, info); err != nil {
		return "", "", err
	}
	if err := bodyTmpl.Execute(&body, info); err != nil {
		return "", "", err
	}
	return subject.String(), body.String(), nil
}
