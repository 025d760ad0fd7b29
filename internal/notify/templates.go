package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"booking-engine/internal/model"
)

type emailTemplate struct {
	subject string
	body    string
}

// Bodies are written once and rendered both as plain text and as escaped
// HTML paragraphs.
var catalogue = map[model.EmailTemplate]emailTemplate{
	model.TemplateBookingReceived: {
		subject: "We received your booking {{.Reference}}",
		body:    "Hi {{.Name}}, we received your booking for {{.ItemName}} starting {{.StartDate}}. Total: {{.Total}}, paid so far: {{.Paid}}.",
	},
	model.TemplateBookingApproved: {
		subject: "Booking {{.Reference}} confirmed",
		body:    "Hi {{.Name}}, your booking for {{.ItemName}} is confirmed.{{if .Balance}} Please settle the remaining balance of {{.Balance}} by {{.DueDate}}.{{end}}",
	},
	model.TemplateBookingRejected: {
		subject: "Booking {{.Reference}} could not be accepted",
		body:    "Hi {{.Name}}, unfortunately we could not accept your booking for {{.ItemName}}.",
	},
	model.TemplateBookingFullyPaid: {
		subject: "Payment received for booking {{.Reference}}",
		body:    "Hi {{.Name}}, we received your full payment of {{.Total}} for {{.ItemName}}. Thank you!",
	},
	model.TemplateBookingCompleted: {
		subject: "Thanks for travelling with us ({{.Reference}})",
		body:    "Hi {{.Name}}, your booking for {{.ItemName}} is complete. We hope you enjoyed it.",
	},
	model.TemplateBookingCancelled: {
		subject: "Booking {{.Reference}} cancelled",
		body:    "Hi {{.Name}}, your booking for {{.ItemName}} has been cancelled.",
	},
	model.TemplateRefundApproved: {
		subject: "Refund approved for booking {{.Reference}}",
		body:    "Hi {{.Name}}, your refund request was approved under the {{.Policy}} policy. Refund amount: {{.Refund}}.",
	},
	model.TemplateRefundDeclined: {
		subject: "Refund request for booking {{.Reference}} declined",
		body:    "Hi {{.Name}}, your refund request was declined and the booking has been cancelled.",
	},
	model.TemplateRefundConfirmed: {
		subject: "Refund sent for booking {{.Reference}}",
		body:    "Hi {{.Name}}, your refund of {{.Refund}} has been sent.",
	},
}

type templateData struct {
	Reference string
	Name      string
	ItemName  string
	StartDate string
	Total     string
	Paid      string
	Balance   string
	DueDate   string
	Policy    string
	Refund    string
}

const dateLayout = "Jan 2, 2006 15:04 MST"

func dataFor(effect model.Effect) (templateData, string, error) {
	switch {
	case effect.Booking != nil:
		b := effect.Booking
		d := templateData{
			Reference: b.Reference,
			Name:      b.Customer.Name,
			ItemName:  b.ItemName,
			StartDate: b.StartDate.Format(dateLayout),
			Total:     b.TotalPrice.StringFixed(2),
			Paid:      b.AmountPaid.StringFixed(2),
		}
		if b.PaymentOption == model.PaymentDownpayment && b.Balance().IsPositive() {
			d.Balance = b.Balance().StringFixed(2)
			if due := b.PaymentDueDate(); due != nil {
				d.DueDate = due.Format(dateLayout)
			}
		}
		return d, b.Customer.Name, nil
	case effect.Refund != nil:
		r := effect.Refund
		return templateData{
			Reference: r.BookingReference,
			Name:      r.SubmitterName,
			Policy:    string(r.RefundPolicy),
			Refund:    r.CalculatedRefundAmount.StringFixed(2),
		}, r.SubmitterName, nil
	}
	return templateData{}, "", fmt.Errorf("email effect %s has no booking or refund", effect.Template)
}

// Render builds the email for an email effect. A non-empty effect note is
// appended as its own paragraph.
func Render(effect model.Effect) (Email, error) {
	tpl, ok := catalogue[effect.Template]
	if !ok {
		return Email{}, fmt.Errorf("unknown email template %q", effect.Template)
	}
	data, name, err := dataFor(effect)
	if err != nil {
		return Email{}, err
	}

	subject, err := execText(tpl.subject, data)
	if err != nil {
		return Email{}, err
	}
	body, err := execText(tpl.body, data)
	if err != nil {
		return Email{}, err
	}

	paragraphs := []string{body}
	if effect.Note != "" {
		paragraphs = append(paragraphs, effect.Note)
		body += "\n\n" + effect.Note
	}

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, paragraphs); err != nil {
		return Email{}, fmt.Errorf("failed to render html body: %w", err)
	}

	return Email{
		To:        effect.Recipient,
		ToName:    name,
		Subject:   subject,
		PlainText: body,
		HTML:      html.String(),
	}, nil
}

var htmlBody = htmltemplate.Must(htmltemplate.New("body").Parse(
	`<html><body>{{range .}}<p>{{.}}</p>{{end}}</body></html>`))

func execText(text string, data templateData) (string, error) {
	t, err := template.New("email").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}
