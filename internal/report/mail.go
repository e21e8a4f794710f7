package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/config"
)

// Mailer delivers a plain-text message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer creates the mailer selected by cfg.Transport.
func NewMailer(cfg config.MailConfig) (Mailer, error) {
	if cfg.From == "" {
		return nil, errors.New("mail delivery requires EMAIL_ADDRESS")
	}
	switch cfg.Transport {
	case "", "smtp":
		return NewSMTPMailer(cfg), nil
	case "ses":
		return NewSESMailer(cfg, nil)
	default:
		return nil, fmt.Errorf("unsupported mail transport: %s", cfg.Transport)
	}
}

// SMTPMailer sends over SMTP with implicit TLS.
type SMTPMailer struct {
	host     string
	port     int
	from     string
	password string
}

// NewSMTPMailer creates an SMTP mailer authenticating as cfg.From.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.From,
		password: cfg.Password,
	}
}

// Send delivers the message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ValidateAddress(to); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 30 * time.Second},
		Config:    &tls.Config{ServerName: m.host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("starting SMTP session: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", m.from, m.password, m.host)); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}
	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(buildMessage(m.from, to, subject, body)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("SMTP QUIT: %w", err)
	}

	log.Info().Str("to", to).Msg("report email sent")
	return nil
}

// buildMessage renders RFC 5322 headers and a UTF-8 text body.
func buildMessage(from, to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	client *ses.SES
	from   string
}

// NewSESMailer creates an SES mailer. awsConfig overrides the region taken
// from cfg when non-nil.
func NewSESMailer(cfg config.MailConfig, awsConfig *aws.Config) (*SESMailer, error) {
	if awsConfig == nil {
		awsConfig = &aws.Config{Region: aws.String(cfg.Region)}
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &SESMailer{client: ses.New(sess), from: cfg.From}, nil
}

// Send delivers the message.
func (m *SESMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ValidateAddress(to); err != nil {
		return err
	}

	out, err := m.client.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(to)}},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body: &ses.Body{
				Text: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending email through SES: %w", err)
	}

	log.Info().Str("to", to).Str("message_id", aws.StringValue(out.MessageId)).Msg("report email sent")
	return nil
}
