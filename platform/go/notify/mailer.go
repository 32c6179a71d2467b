package notify

import (
	"context"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// MailConfig captures the SMTP transport settings.
type MailConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM" envDefault:"no-reply@portal.local"`
}

// Mailer is the SMTP-backed Notifier. Every send is single-shot; transport
// errors are logged and surfaced only through the Delivery result.
type Mailer struct {
	cfg    MailConfig
	logger *zap.Logger
}

// NewMailer constructs a Mailer. The SMTP connection is dialed per send so a
// broken relay never wedges the API process.
func NewMailer(cfg MailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

func (m *Mailer) RegistrationInitiated(ctx context.Context, info RegistrationInfo) Delivery {
	subject, body, err := RenderInitiated(info)
	if err != nil {
		return m.failed("render registration initiated mail", info, err)
	}
	return m.send(ctx, info, subject, body)
}

func (m *Mailer) RegistrationStateChanged(ctx context.Context, info RegistrationInfo) Delivery {
	subject, body, err := RenderStateChanged(info)
	if err != nil {
		return m.failed("render state changed mail", info, err)
	}
	return m.send(ctx, info, subject, body)
}

func (m *Mailer) send(ctx context.Context, info RegistrationInfo, subject, body string) Delivery {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return m.failed("set mail sender", info, err)
	}
	if err := msg.To(info.Email); err != nil {
		return m.failed("set mail recipient", info, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return m.failed("build smtp client", info, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return m.failed("send mail", info, err)
	}

	return Delivery{Delivered: true}
}

func (m *Mailer) failed(msg string, info RegistrationInfo, err error) Delivery {
	m.logger.Error(msg, zap.String("recipient", info.Email), zap.Error(err))
	return Delivery{Delivered: false, Err: err}
}
