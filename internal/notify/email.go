package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/zulandar/leadyard/internal/config"
	"gopkg.in/gomail.v2"
)

// Dialer is the part of *gomail.Dialer the email sender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers messages over SMTP.
type EmailSender struct {
	dialer Dialer
	from   string
}

// NewEmailSender creates an EmailSender from SMTP settings.
func NewEmailSender(cfg config.EmailConfig) (*EmailSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("notify: smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("notify: smtp from address is required")
	}
	return NewEmailSenderWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password), cfg.From), nil
}

// NewEmailSenderWithDialer creates an EmailSender over d.
func NewEmailSenderWithDialer(d Dialer, from string) *EmailSender {
	return &EmailSender{dialer: d, from: from}
}

var emailTemplate = template.Must(template.New("email").Parse(`<div style="border-left:4px solid {{.Color}};padding-left:12px">
<h3>{{.Title}}</h3>
{{if .Body}}<p>{{.Body}}</p>{{end}}
<table>{{range .Fields}}
<tr><td><b>{{.Name}}</b></td><td>{{.Value}}</td></tr>{{end}}
</table>
</div>`))

// Send emails msg to addr. gomail dials per message and does not take a
// context, so cancellation is only checked before dialling.
func (s *EmailSender) Send(ctx context.Context, addr string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, msg); err != nil {
		return fmt.Errorf("notify: render email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", addr)
	m.SetHeader("Subject", msg.Title)
	m.SetBody("text/plain", msg.Text())
	m.AddAlternative("text/html", html.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("notify: smtp send to %s: %w", addr, err)
	}
	return nil
}
