package mail

import (
	"context"
	"fmt"
	"sync"
)

// Outbox records messages in memory instead of delivering them. It is the
// development and test mailer; Send returns a preview reference that carries
// the stored message index.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(_ context.Context, msg Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return fmt.Sprintf("outbox://message/%d", len(o.messages)-1), nil
}

// Messages returns a copy of everything recorded so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Last returns the most recent message, or false when nothing was sent.
func (o *Outbox) Last() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return Message{}, false
	}
	return o.messages[len(o.messages)-1], true
}
