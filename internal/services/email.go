package services

import (
	"crypto/tls"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"github.com/murmurapp/murmur-backend/internal/config"
)

// EmailSender delivers the verification code to a new registrant. Exactly one
// send happens per registration and the result is awaited before the
// registration response is produced.
type EmailSender interface {
	SendVerificationCode(toEmail, username, code string) error
}

// SMTPSender sends mail over plain SMTP, STARTTLS or implicit TLS depending
// on configuration.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendVerificationCode(toEmail, username, code string) error {
	subject := "Murmur: Verification Code"
	body := buildVerificationBody(username, code)
	return s.send(toEmail, subject, body)
}

func buildVerificationBody(username, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", username)
	b.WriteString("Please enter the following verification code to confirm your email address:\r\n\r\n")
	fmt.Fprintf(&b, "    %s\r\n\r\n", code)
	b.WriteString("This code will expire in 60 minutes.\r\n\r\n")
	b.WriteString("If you didn't request this verification code, please ignore this email.\r\n")
	return b.String()
}

func (s *SMTPSender) send(toEmail, subject, body string) error {
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return fmt.Errorf("smtp is not configured")
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", toEmail, err)
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, s.cfg.From, toEmail, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.UseSSL {
		return sendMailWithSSL(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg))
	}
	if s.cfg.UseTLS {
		return sendMailWithStartTLS(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg))
	}
	return smtp.SendMail(addr, auth, s.cfg.From, []string{toEmail}, []byte(msg))
}

func buildFromAddress(from, fromName string) string {
	if fromName == "" {
		return from
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), from)
}

func buildEmailMessage(from, fromAddr, to, subject, body string) string {
	domain := "localhost"
	if at := strings.LastIndex(fromAddr, "@"); at >= 0 {
		domain = fromAddr[at+1:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// sendMailWithSSL dials a TLS connection first (implicit TLS, port 465).
func sendMailWithSSL(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	return submit(client, auth, from, to, msg)
}

// sendMailWithStartTLS upgrades a plain connection (port 587).
func sendMailWithStartTLS(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}

	return submit(client, auth, from, to, msg)
}

func submit(client *smtp.Client, auth smtp.Auth, from string, to []string, msg []byte) error {
	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
