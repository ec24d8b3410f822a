// Package transcript holds the append-only conversation log shown in the
// chat pane.
package transcript

import "time"

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Message is immutable once appended.
type Message struct {
	ID     uint64
	Author Author
	Text   string
	SentAt time.Time
}

// Transcript is not safe for concurrent use; it is owned by the session.
type Transcript struct {
	lastID   uint64
	messages []Message
	now      func() time.Time
}

// Option configures a Transcript.
type Option func(*Transcript)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Transcript) {
		if now != nil {
			t.now = now
		}
	}
}

func New(opts ...Option) *Transcript {
	t := &Transcript{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append adds a message with the next id and returns it. Ids strictly
// increase within a transcript so display order never depends on timestamps.
func (t *Transcript) Append(author Author, text string) Message {
	t.lastID++
	msg := Message{
		ID:     t.lastID,
		Author: author,
		Text:   text,
		SentAt: t.now(),
	}
	t.messages = append(t.messages, msg)
	return msg
}

// Messages returns the log in insertion order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int { return len(t.messages) }

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
