package notify

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is an in-memory Gateway for tests. It records every message
// and can be told to fail.
type Recorder struct {
	mu       sync.Mutex
	messages []RecordedMessage

	// FailNext makes the next Send return an error.
	FailNext bool
	// FailAll makes every Send return an error.
	FailAll bool
}

// RecordedMessage is one captured dispatch.
type RecordedMessage struct {
	From    Sender
	Message Message
	Subject string
	Body    string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Send renders the template (so template errors surface in tests) and
// records the message.
func (r *Recorder) Send(_ context.Context, from Sender, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAll || r.FailNext {
		r.FailNext = false
		return fmt.Errorf("notify: simulated delivery failure to %s", msg.RecipientEmail)
	}

	subject, body, err := RenderTemplate(msg)
	if err != nil {
		return err
	}
	r.messages = append(r.messages, RecordedMessage{
		From: from, Message: msg, Subject: subject, Body: body,
	})
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []RecordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message, or false if none were sent.
func (r *Recorder) Last() (RecordedMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return RecordedMessage{}, false
	}
	return r.messages[len(r.messages)-1], true
}
