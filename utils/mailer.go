package utils

import (
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sgd0947/journal/config"
)

// SendMail delivers one HTML message to the given recipients. SendGrid is
// used when an API key is configured, plain SMTP otherwise.
func SendMail(to []string, subject, htmlBody string) error {
	cfg := config.Get()
	if len(to) == 0 {
		return nil
	}
	if cfg.SendGridAPIKey != "" {
		return sendWithSendGrid(cfg, to, subject, htmlBody)
	}
	return sendWithSMTP(cfg, to, subject, htmlBody)
}

func sendWithSendGrid(cfg config.AppConfig, to []string, subject, htmlBody string) error {
	message := sgmail.NewV3Mail()
	message.SetFrom(sgmail.NewEmail(cfg.MailFromName, cfg.MailFrom))
	message.Subject = subject

	p := sgmail.NewPersonalization()
	for _, rcpt := range to {
		p.AddTos(sgmail.NewEmail("", rcpt))
	}
	message.AddPersonalizations(p)
	message.AddContent(sgmail.NewContent("text/html", htmlBody))

	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func sendWithSMTP(cfg config.AppConfig, to []string, subject, htmlBody string) error {
	if cfg.SMTPHost == "" || cfg.MailFrom == "" {
		return fmt.Errorf("smtp not configured")
	}
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)

	fromHeader := fmt.Sprintf("%s <%s>", encodeHeader(cfg.MailFromName), cfg.MailFrom)
	headers := []string{
		"From: " + fromHeader,
		"To: " + strings.Join(to, ", "),
		"Subject: " + encodeHeader(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	if !cfg.SMTPTLS {
		return smtp.SendMail(addr, auth, cfg.MailFrom, to, []byte(msg))
	}

	// STARTTLS with timeouts so a stuck mail server cannot hang the caller.
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
			return err
		}
	}
	if cfg.SMTPUsername != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.MailFrom); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// encodeHeader wraps non-ASCII header values in RFC 2047 B encoding.
func encodeHeader(s string) string {
	return mime.BEncoding.Encode("UTF-8", s)
}
