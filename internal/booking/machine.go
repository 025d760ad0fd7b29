package booking

import (
	"fmt"
	"time"

	"booking-engine/internal/model"
)

// Event is something that asks a booking to change status.
type Event string

const (
	EventApprove                  Event = "approve"
	EventReject                   Event = "reject"
	EventCancel                   Event = "cancel"
	EventComplete                 Event = "complete"
	EventBalancePaid              Event = "balance_paid"
	EventPendingExpired           Event = "pending_expired"
	EventAdminConfirmationExpired Event = "admin_confirmation_expired"
	EventPaymentDeadlineExpired   Event = "payment_deadline_expired"
)

// Windows holds the lengths of the three booking timers.
type Windows struct {
	Pending           time.Duration
	AdminConfirmation time.Duration
	BalanceDue        time.Duration
}

// DefaultWindows returns the standard timer lengths.
func DefaultWindows() Windows {
	return Windows{
		Pending:           15 * time.Minute,
		AdminConfirmation: 24 * time.Hour,
		BalanceDue:        72 * time.Hour,
	}
}

// Input carries who triggered an event and why.
type Input struct {
	Actor  string
	Reason string
}

// Change describes one committed-or-rejected status move: the conditional
// update to perform and the effects to dispatch once it lands.
type Change struct {
	Event    Event
	From     model.BookingStatus
	To       model.BookingStatus
	Deadline model.Deadline
	// ExpectDeadline, when set, requires the stored timer to still be of
	// this kind and already elapsed at At.
	ExpectDeadline model.DeadlineKind
	At             time.Time
	Note           *model.Note
	Effects        []model.Effect
}

// ApplyTo mirrors a committed change onto the in-memory booking so that
// effects render the post-transition state.
func (c *Change) ApplyTo(b *model.Booking) {
	b.Status = c.To
	b.Deadline = c.Deadline
	b.UpdatedAt = c.At
	if c.Note != nil {
		b.Notes = append(b.Notes, *c.Note)
	}
}

// Machine is the booking state machine. Apply never mutates the booking it is
// given; callers persist the returned Change with a conditional update.
type Machine struct {
	windows Windows
}

// NewMachine creates a state machine using the given timer windows.
func NewMachine(windows Windows) *Machine {
	return &Machine{windows: windows}
}

// Windows returns the configured timer lengths.
func (m *Machine) Windows() Windows {
	return m.windows
}

// Initial puts a new booking into pending and arms its first timer.
func (m *Machine) Initial(b *model.Booking, now time.Time) ([]model.Effect, error) {
	switch b.ItemType {
	case model.ItemTypeCar, model.ItemTypeTour:
		b.Deadline = model.AwaitingPayment(now.Add(m.windows.Pending))
	case model.ItemTypeTransport:
		if len(b.Payments) == 0 {
			return nil, model.ValidationError("transport bookings require an initial payment")
		}
		b.Deadline = model.AwaitingAdminConfirmation(now.Add(m.windows.AdminConfirmation))
	default:
		return nil, model.ValidationError(fmt.Sprintf("unknown item type %q", b.ItemType))
	}
	b.Status = model.StatusPending

	return []model.Effect{
		model.EmailEffect(model.TemplateBookingReceived, b, ""),
		model.NotificationEffect(model.StaffRecipient,
			fmt.Sprintf("New %s booking %s for %s", b.ItemType, b.Reference, b.ItemName),
			bookingLink(b)),
	}, nil
}

// Apply validates ev against the transition table and returns the change
// it would make to b at now.
func (m *Machine) Apply(b *model.Booking, ev Event, in Input, now time.Time) (*Change, error) {
	c := &Change{
		Event:    ev,
		From:     b.Status,
		Deadline: model.NoDeadline(),
		At:       now.UTC(),
	}

	switch ev {
	case EventApprove:
		if b.Status != model.StatusPending {
			return nil, invalid(b, ev)
		}
		c.To = model.StatusConfirmed
		if b.PaymentOption == model.PaymentDownpayment && !(Ledger{}).IsFullyPaid(b) {
			c.Deadline = model.AwaitingBalance(now.Add(m.windows.BalanceDue))
		}
		c.Effects = append(c.Effects, model.EmailEffect(model.TemplateBookingApproved, b, in.Reason))

	case EventReject:
		if b.Status != model.StatusPending {
			return nil, invalid(b, ev)
		}
		c.To = model.StatusRejected
		c.Effects = append(c.Effects, model.EmailEffect(model.TemplateBookingRejected, b, in.Reason))

	case EventBalancePaid:
		if b.Status != model.StatusConfirmed || !(Ledger{}).IsFullyPaid(b) {
			return nil, invalid(b, ev)
		}
		c.To = model.StatusFullyPaid
		c.Effects = append(c.Effects, model.EmailEffect(model.TemplateBookingFullyPaid, b, ""))

	case EventCancel:
		if b.Status.IsTerminal() {
			return nil, invalid(b, ev)
		}
		c.To = model.StatusCancelled
		c.Effects = append(c.Effects, model.EmailEffect(model.TemplateBookingCancelled, b, in.Reason))

	case EventComplete:
		if b.Status != model.StatusConfirmed && b.Status != model.StatusFullyPaid {
			return nil, invalid(b, ev)
		}
		c.To = model.StatusCompleted
		c.Effects = append(c.Effects, model.EmailEffect(model.TemplateBookingCompleted, b, in.Reason))

	case EventPendingExpired, EventAdminConfirmationExpired, EventPaymentDeadlineExpired:
		if !m.expiryApplies(b, ev, now) {
			return nil, invalid(b, ev)
		}
		c.To = model.StatusCancelled
		c.ExpectDeadline = b.Deadline.Kind
		message := ExpiryMessage(b)
		c.Note = model.NewNote(message, model.SystemAuthor, "", now)
		c.Effects = append(c.Effects, model.EmailEffect(model.TemplateBookingCancelled, b, message))
		if b.Customer.OwnerID != "" {
			c.Effects = append(c.Effects, model.NotificationEffect(b.Customer.OwnerID, message, bookingLink(b)))
		}
		return c, nil

	default:
		return nil, invalid(b, ev)
	}

	if in.Reason != "" {
		c.Note = model.NewNote(in.Reason, in.Actor, "", now)
	}
	return c, nil
}

// ExpiryEvent maps a booking's active timer to the event it fires.
func ExpiryEvent(b *model.Booking) (Event, bool) {
	switch b.Deadline.Kind {
	case model.DeadlineAwaitingAdminConfirmation:
		return EventAdminConfirmationExpired, true
	case model.DeadlineAwaitingBalance:
		return EventPaymentDeadlineExpired, true
	case model.DeadlineAwaitingPayment:
		return EventPendingExpired, true
	}
	return "", false
}

// ExpiryMessage explains which deadline cancelled the booking. The admin
// confirmation window wins over the balance deadline, which wins over the
// initial payment window.
func ExpiryMessage(b *model.Booking) string {
	switch {
	case b.AdminConfirmationDueDate() != nil:
		return fmt.Sprintf("Booking %s was automatically cancelled because it was not confirmed within the admin confirmation window.", b.Reference)
	case b.PaymentDueDate() != nil:
		return fmt.Sprintf("Booking %s was automatically cancelled because the remaining balance was not paid by the payment deadline.", b.Reference)
	default:
		return fmt.Sprintf("Booking %s was automatically cancelled because payment was not received within the payment window.", b.Reference)
	}
}

func (m *Machine) expiryApplies(b *model.Booking, ev Event, now time.Time) bool {
	if !b.Deadline.ElapsedAt(now) {
		return false
	}
	switch ev {
	case EventPendingExpired:
		return b.Status == model.StatusPending &&
			(b.ItemType == model.ItemTypeCar || b.ItemType == model.ItemTypeTour) &&
			b.Deadline.Kind == model.DeadlineAwaitingPayment
	case EventAdminConfirmationExpired:
		return b.Status == model.StatusPending &&
			b.ItemType == model.ItemTypeTransport &&
			b.Deadline.Kind == model.DeadlineAwaitingAdminConfirmation
	case EventPaymentDeadlineExpired:
		return b.Status == model.StatusConfirmed &&
			b.PaymentOption == model.PaymentDownpayment &&
			b.Deadline.Kind == model.DeadlineAwaitingBalance
	}
	return false
}

func invalid(b *model.Booking, ev Event) error {
	return model.NewDomainError(model.ErrCodeInvalidTransition,
		fmt.Sprintf("cannot %s booking %s while it is %s", ev, b.Reference, b.Status))
}

func bookingLink(b *model.Booking) string {
	return "/bookings/" + b.Reference
}
