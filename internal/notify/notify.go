// Package notify delivers the email and in-app notification effects that
// booking and refund workflows produce.
package notify

import "context"

// Email is a rendered message ready to hand to a mail provider.
type Email struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer sends rendered emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// Notifier delivers an in-app notification to a recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, message, link string) error
}

// multiNotifier fans a notification out to several channels.
type multiNotifier []Notifier

// NewMultiNotifier returns a Notifier that delivers through every given
// channel and reports the first failure after trying them all.
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, recipient, message, link string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, recipient, message, link); err != nil && first == nil {
			first = err
		}
	}
	return first
}
