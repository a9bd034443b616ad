package notify

import (
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/skip2/go-qrcode"

	"santamoment/internal/config"
	"santamoment/internal/logger"
)

// EmailSender sends customer notifications over plain SMTP.
type EmailSender struct {
	cfg config.EmailConfig
	log *logger.Logger
}

func NewEmailSender(cfg config.EmailConfig, log *logger.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, log: log}
}

func (s *EmailSender) Send(job Job) error {
	var subject, body string
	var err error

	switch job.Type {
	case JobPaymentConfirmed:
		subject, body = s.paymentConfirmedMail(job)
	case JobDelivery:
		subject, body, err = s.deliveryMail(job)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown notification type %q", job.Type)
	}

	return s.send(job.Order.CustomerEmail, subject, body)
}

func (s *EmailSender) paymentConfirmedMail(job Job) (string, string) {
	o := job.Order
	subject := "🎅 Santa got your order!"
	body := fmt.Sprintf(
		"<h2>Thank you!</h2>"+
			"<p>Order <b>%s</b> is confirmed and Santa's workshop is on it.</p>"+
			"<p>We'll email %s's photo to this address as soon as it is ready.</p>",
		o.OrderID, htmlEscape(o.ChildName))
	return subject, body
}

func (s *EmailSender) deliveryMail(job Job) (string, string, error) {
	o := job.Order

	// QR code for the download link, embedded inline.
	png, err := qrcode.Encode(job.Link, qrcode.Medium, 256)
	if err != nil {
		return "", "", fmt.Errorf("encode delivery QR: %w", err)
	}
	qrData := base64.StdEncoding.EncodeToString(png)

	subject := fmt.Sprintf("🎁 %s's Santa photo is ready!", o.ChildName)
	body := fmt.Sprintf(
		"<h2>It's here!</h2>"+
			"<p>Santa's visit with <b>%s</b> is ready to download:</p>"+
			"<p><a href=\"%s\">%s</a></p>"+
			"<p>Or scan:</p>"+
			"<img src=\"data:image/png;base64,%s\" alt=\"download QR\" width=\"256\" height=\"256\"/>",
		htmlEscape(o.ChildName), job.Link, job.Link, qrData)
	return subject, body, nil
}

func (s *EmailSender) send(to, subject, htmlBody string) error {
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	msg := strings.Join([]string{
		"From: " + s.cfg.FromAddress,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
