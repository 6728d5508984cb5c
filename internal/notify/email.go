package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

// Validate checks that the configuration can send mail.
func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("smtp host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("smtp port is required")
	}
	if c.From == "" {
		return fmt.Errorf("smtp from address is required")
	}
	return nil
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier delivers account emails over SMTP.
type EmailNotifier struct {
	config    SMTPConfig
	templates *template.Template
	sendMail  sendFunc
	logger    zerolog.Logger
}

// NewEmailNotifier creates an EmailNotifier.
func NewEmailNotifier(config SMTPConfig, logger zerolog.Logger) (*EmailNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid smtp config: %w", err)
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &EmailNotifier{
		config:    config,
		templates: tmpl,
		sendMail:  smtp.SendMail,
		logger:    logger.With().Str("component", "email_notifier").Logger(),
	}, nil
}

type templateData struct {
	Name      string
	Code      string
	Link      string
	ExpiresIn string
}

// SendVerificationCode emails the code that confirms a new account.
func (e *EmailNotifier) SendVerificationCode(ctx context.Context, msg Message) error {
	return e.sendTemplate(ctx, msg, "Confirm your Dealbook email", "verification_code.html")
}

// SendLoginCode emails the second-factor sign-in code.
func (e *EmailNotifier) SendLoginCode(ctx context.Context, msg Message) error {
	return e.sendTemplate(ctx, msg, "Your Dealbook sign-in code", "login_code.html")
}

// SendPasswordReset emails the password reset link.
func (e *EmailNotifier) SendPasswordReset(ctx context.Context, msg Message) error {
	return e.sendTemplate(ctx, msg, "Reset your Dealbook password", "password_reset.html")
}

func (e *EmailNotifier) sendTemplate(ctx context.Context, msg Message, subject, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := templateData{
		Name:      msg.Name,
		Code:      msg.Code,
		Link:      msg.Link,
		ExpiresIn: humanDuration(msg.ExpiresIn),
	}
	if data.Name == "" {
		data.Name = "there"
	}

	var body bytes.Buffer
	if err := e.templates.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	return e.send(msg.To, subject, body.String())
}

func (e *EmailNotifier) send(to, subject, htmlBody string) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient address")
	}
	raw := e.buildMessage(to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	var err error
	if e.config.TLS {
		err = e.sendTLS(addr, to, raw)
	} else {
		var auth smtp.Auth
		if e.config.Username != "" {
			auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		}
		err = e.sendMail(addr, auth, e.config.From, []string{to}, raw)
	}
	if err != nil {
		e.logger.Error().Err(err).Str("to", MaskEmail(to)).Str("subject", subject).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	e.logger.Info().Str("to", MaskEmail(to)).Str("subject", subject).Msg("email sent")
	return nil
}

func (e *EmailNotifier) buildMessage(to, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", e.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	return buf.Bytes()
}

// sendTLS sends over implicit TLS (port 465).
func (e *EmailNotifier) sendTLS(addr, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: e.config.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.Host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()

	if e.config.Username != "" {
		auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err = client.Mail(e.config.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close message writer: %w", err)
	}
	return client.Quit()
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		m := int(d.Round(time.Minute) / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
}
