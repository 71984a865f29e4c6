package email

import (
	"sync"

	"scale_backend/internal/logger"
)

// NoopProvider используется, когда SMTP не настроен, и в тестах.
// Письма не отправляются, а складываются в Sent.
type NoopProvider struct {
	mu   sync.Mutex
	Sent []Email
}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Send(email *Email) error {
	p.mu.Lock()
	p.Sent = append(p.Sent, *email)
	p.mu.Unlock()
	logger.Debug("Email suppressed (noop provider)", "to", email.To, "subject", email.Subject)
	return nil
}

func (p *NoopProvider) SendWelcome(to, userName, referralLink string) error {
	return p.Send(&Email{
		To:      []string{to},
		Subject: "Welcome",
		Body:    referralLink,
	})
}

// Messages возвращает копию отправленных писем.
func (p *NoopProvider) Messages() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Email, len(p.Sent))
	copy(out, p.Sent)
	return out
}

func (p *NoopProvider) Validate() error { return nil }
func (p *NoopProvider) Close() error    { return nil }

// NewProvider выбирает SMTP, если он настроен, иначе noop.
func NewProvider(cfg *SMTPConfig) Provider {
	if cfg == nil || !cfg.Enabled() {
		logger.Warn("SMTP is not configured, emails will not be sent")
		return NewNoopProvider()
	}
	return NewSMTPProvider(cfg, NewTemplateManager())
}
