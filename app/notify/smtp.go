package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/fitstack/ms-go-account/config"
)

var codeTemplate = template.Must(template.New("code").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>Your verification code is:</p>
<h2>{{.Code}}</h2>
<p>It expires in a few minutes. If you did not request it, you can ignore this email.</p>
</body>
</html>`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>Your account is verified and ready. Welcome aboard!</p>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Use the token below to choose a new one:</p>
<h2>{{.Token}}</h2>
<p>If you did not request a reset, no action is needed.</p>
</body>
</html>`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers account emails over plain SMTP.
type SMTPSender struct {
	cfg  config.SMTPConfig
	send sendFunc
}

type SMTPSenderOption func(*SMTPSender)

func NewSMTPSender(cfg config.SMTPConfig, opts ...SMTPSenderOption) *SMTPSender {
	s := &SMTPSender{
		cfg:  cfg,
		send: smtp.SendMail,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithSendFunc replaces the SMTP transport. Used by tests.
func WithSendFunc(send sendFunc) SMTPSenderOption {
	return func(s *SMTPSender) {
		if send != nil {
			s.send = send
		}
	}
}

func (s *SMTPSender) DeliverCode(ctx context.Context, email, name, code string) error {
	body, err := renderTemplate(codeTemplate, map[string]string{"Name": name, "Code": code})
	if err != nil {
		return err
	}
	return s.deliver(ctx, email, "Your verification code", body)
}

func (s *SMTPSender) DeliverWelcome(ctx context.Context, email, name string) error {
	body, err := renderTemplate(welcomeTemplate, map[string]string{"Name": name})
	if err != nil {
		return err
	}
	return s.deliver(ctx, email, "Welcome!", body)
}

func (s *SMTPSender) DeliverPasswordReset(ctx context.Context, email, name, token string) error {
	body, err := renderTemplate(resetTemplate, map[string]string{"Name": name, "Token": token})
	if err != nil {
		return err
	}
	return s.deliver(ctx, email, "Password reset", body)
}

func (s *SMTPSender) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	return s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

func renderTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
