package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig addresses the relay and the fixed envelope.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SMTPSender submits messages to an SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send dials the relay and submits msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(s.cfg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	if len(msg.Attachment) > 0 {
		err := m.AttachReader(msg.AttachmentName, bytes.NewReader(msg.Attachment),
			mail.WithFileContentType(mail.ContentType("application/pdf")))
		if err != nil {
			return nil, fmt.Errorf("failed to attach document: %w", err)
		}
	}
	return m, nil
}

// Mailer composes notices and enforces the email attachment ceiling.
type Mailer struct {
	sender  Sender
	ceiling int
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a Mailer. A ceiling of zero disables the size check.
func New(sender Sender, ceiling int, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{sender: sender, ceiling: ceiling, now: time.Now, logger: logger}
}

// Deliver sends the notice. A document above the ceiling is left off and
// the message says so instead.
func (m *Mailer) Deliver(ctx context.Context, n Notice) error {
	if size := len(n.Document); m.ceiling > 0 && size > m.ceiling {
		m.logger.Warn("document exceeds email attachment ceiling",
			zap.Int("size", size),
			zap.Int("ceiling", m.ceiling))
		n.Document = nil
		if n.Note == "" {
			n.Note = fmt.Sprintf("The document is %d bytes, above the %d byte email limit, and is not attached.", size, m.ceiling)
		}
	}

	msg, err := Compose(n, m.now())
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}
