package notify

import (
	"bytes"
	"html/template"
	"io"
	"strings"
	texttemplate "text/template"

	"github.com/wneessen/go-mail"
)

// Confirmation is the rendered receipt sent to a ticket's sender
type Confirmation struct {
	Subject  string
	TicketID string
	Title    string
	HTML     string
	Text     string
}

var htmlTemplate = template.Must(template.New("confirmation").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <p>Dear Customer,</p>
    <p>We've received your support request regarding: <b>{{.Subject}}</b>.</p>
    <p>Your Ticket ID is: <b style="color:#0078D7;">{{.TicketID}}</b>.</p>
    <p>Our support team will review your ticket and get back to you shortly.</p>
    <br>
    <p>Thank you for contacting <b>IT Support</b>.</p>
    <p>Kind regards, <br>
    <b>Auto-Ticketing System</b><br>
    IT Support Team<br>
    {{if .Support}}<a href="mailto:{{.Support}}">{{.Support}}</a>{{end}}</p>
    <hr>
    <small style="color: #888;">This is an automated message. Please do not reply directly to this email.</small>
</body>
</html>
`))

var textTemplate = texttemplate.Must(texttemplate.New("confirmation").Parse(`Dear Customer,

We've received your support request regarding: {{.Subject}}.
Your Ticket ID is: {{.TicketID}}.

Our support team will review your ticket and get back to you shortly.

Kind regards,
Auto-Ticketing System
IT Support Team
{{if .Support}}{{.Support}}
{{end}}
This is an automated message. Please do not reply directly to this email.
`))

// RenderConfirmation renders the fixed receipt template for a ticket
func RenderConfirmation(subject, ticketID, supportAddress string) (Confirmation, error) {
	data := struct {
		Subject  string
		TicketID string
		Support  string
	}{subject, ticketID, supportAddress}

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return Confirmation{}, err
	}
	if err := textTemplate.Execute(&text, data); err != nil {
		return Confirmation{}, err
	}

	return Confirmation{
		Subject:  subject,
		TicketID: ticketID,
		Title:    "[Ticket Received] " + strings.TrimSpace(subject) + " (ID: " + ticketID + ")",
		HTML:     html.String(),
		Text:     text.String(),
	}, nil
}

// Message builds the MIME message for the confirmation
func (c Confirmation) Message(from, to string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, err
	}
	if err := m.To(to); err != nil {
		return nil, err
	}
	m.Subject(c.Title)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, c.Text)
	m.AddAlternativeString(mail.TypeTextHTML, c.HTML)
	return m, nil
}

// WriteMessage writes the confirmation as an RFC 5322 message
func (c Confirmation) WriteMessage(w io.Writer, from, to string) error {
	m, err := c.Message(from, to)
	if err != nil {
		return err
	}
	_, err = m.WriteTo(w)
	return err
}
