package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/sirupsen/logrus"
)

// SMTPConfig carries the outbound mail parameters of one account.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

func dialer(timeout time.Duration) *net.Dialer {
	return &net.Dialer{Timeout: timeout}
}

// SMTPSender implements Sender over SMTP, implicit TLS on port 465 and
// STARTTLS otherwise.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *logrus.Logger
}

// NewSMTPSender creates a sender; connections are per-Send.
func NewSMTPSender(cfg SMTPConfig, logger *logrus.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Send delivers a fully composed wire-form message.
func (s *SMTPSender) Send(ctx context.Context, from string, to []string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == "" {
		from = s.cfg.Username
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	var cl *smtp.Client
	if s.cfg.Port == 465 {
		conn, err := tls.DialWithDialer(dialer(s.cfg.Timeout), "tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		cl, err = smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
	} else {
		var err error
		cl, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		if err := cl.StartTLS(tlsConfig); err != nil {
			cl.Close()
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	defer cl.Close()

	if s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := cl.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := cl.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := cl.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := cl.Data()
	if err != nil {
		return fmt.Errorf("failed to send data command: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	s.logger.WithField("recipients", len(to)).Info("Message sent")
	return cl.Quit()
}
