package mail

import "context"

// Message is a plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages. Send returns a preview URL when the backing
// transport exposes one (development outboxes do; SMTP does not). Delivery
// failure never rolls back store mutations the caller already made; the
// caller surfaces the error and relies on a resend path instead.
type Mailer interface {
	Send(ctx context.Context, msg Message) (preview string, err error)
}
