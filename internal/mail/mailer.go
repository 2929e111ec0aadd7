package mail

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// Config параметры SMTP.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Mailer отправляет письма через SMTP.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// New создаёт отправителя. Без хоста возвращает nil: почта отключена.
func New(cfg Config) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// Send отправляет письмо с HTML телом.
func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

// NotificationBody собирает простое письмо-копию уведомления.
func NotificationBody(title, message, link string) string {
	body := fmt.Sprintf("<h3>%s</h3><p>%s</p>", html.EscapeString(title), html.EscapeString(message))
	if link != "" {
		body += fmt.Sprintf(`<p><a href="%s">Открыть</a></p>`, html.EscapeString(link))
	}
	return body
}
