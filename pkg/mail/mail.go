package mail

import (
	"fmt"
	"net/smtp"
	"os"

	"go.uber.org/zap"
)

// Sender delivers a plain-text message to a single recipient.
type Sender interface {
	Send(to, subject, body string) error
}

type Config struct {
	Host string
	Port string
	From string
	User string
	Pass string
}

// ConfigFromEnv reads SMTP settings from env vars.
func ConfigFromEnv() Config {
	return Config{
		Host: os.Getenv("SMTP_HOST"),
		Port: os.Getenv("SMTP_PORT"),
		From: os.Getenv("SMTP_FROM"),
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
	}
}

// NewSenderFromEnv returns an SMTP sender when SMTP_HOST is configured,
// otherwise a sender that only logs the message (local development).
func NewSenderFromEnv(logger *zap.SugaredLogger) Sender {
	cfg := ConfigFromEnv()
	if cfg.Host == "" {
		return &LogSender{logger: logger}
	}
	return &SMTPSender{cfg: cfg}
}

// SMTPSender delivers mail via a plain SMTP relay.
type SMTPSender struct {
	cfg Config
}

func (s *SMTPSender) Send(to, subject, body string) error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.cfg.From, to, subject, body)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

// LogSender writes the message to the log instead of delivering it.
type LogSender struct {
	logger *zap.SugaredLogger
}

func (s *LogSender) Send(to, subject, body string) error {
	s.logger.Infow("outbound mail", "to", to, "subject", subject, "body", body)
	return nil
}
