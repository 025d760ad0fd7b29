package model

// EffectKind is the delivery channel of a side effect.
type EffectKind string

const (
	EffectEmail        EffectKind = "email"
	EffectNotification EffectKind = "notification"
)

// EmailTemplate selects the email body sent for an effect.
type EmailTemplate string

const (
	TemplateBookingReceived  EmailTemplate = "booking-received"
	TemplateBookingApproved  EmailTemplate = "booking-approved"
	TemplateBookingRejected  EmailTemplate = "booking-rejected"
	TemplateBookingFullyPaid EmailTemplate = "booking-fully-paid"
	TemplateBookingCompleted EmailTemplate = "booking-completed"
	TemplateBookingCancelled EmailTemplate = "booking-cancelled"
	TemplateRefundApproved   EmailTemplate = "refund-approved"
	TemplateRefundDeclined   EmailTemplate = "refund-declined"
	TemplateRefundConfirmed  EmailTemplate = "refund-confirmed"
)

// StaffRecipient addresses in-app notifications to the admin team.
const StaffRecipient = "staff"

// Effect is an outbound side effect produced by a state change. Effects are
// dispatched after the change is committed and never roll it back.
type Effect struct {
	Kind     EffectKind    `json:"kind"`
	Template EmailTemplate `json:"template,omitempty"`
	// Recipient is an email address for emails and an owner ID (or
	// StaffRecipient) for notifications.
	Recipient string         `json:"recipient"`
	Message   string         `json:"message,omitempty"`
	Link      string         `json:"link,omitempty"`
	Booking   *Booking       `json:"booking,omitempty"`
	Refund    *RefundRequest `json:"refund,omitempty"`
	Note      string         `json:"note,omitempty"`
}

// EmailEffect builds an email effect about a booking.
func EmailEffect(template EmailTemplate, b *Booking, note string) Effect {
	return Effect{
		Kind:      EffectEmail,
		Template:  template,
		Recipient: b.Customer.Email,
		Booking:   b,
		Note:      note,
	}
}

// NotificationEffect builds an in-app notification effect.
func NotificationEffect(recipient, message, link string) Effect {
	return Effect{
		Kind:      EffectNotification,
		Recipient: recipient,
		Message:   message,
		Link:      link,
	}
}

// RefundEmailEffect builds an email effect about a refund request.
func RefundEmailEffect(template EmailTemplate, r *RefundRequest, note string) Effect {
	return Effect{
		Kind:      EffectEmail,
		Template:  template,
		Recipient: r.SubmitterEmail,
		Refund:    r,
		Note:      note,
	}
}
