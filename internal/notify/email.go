package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/telemetry"

	"github.com/jordan-wright/email"
)

const report_email_send = "email.send"

type EmailConfig struct {
	Server       string
	Port         int
	EmailAddress string
	Password     string
	To           []string
	// Timeout bounds a whole send, including the auth fallback.
	Timeout time.Duration
}

const defaultEmailTimeout = 30 * time.Second

// Email sends messages as plain text mail.
type Email struct {
	config EmailConfig
	tel    telemetry.API
	send   func(mail *email.Email, addr string, auth smtp.Auth) error
}

func NewEmail(config EmailConfig, tel telemetry.API) Email {
	assert.NotNil(tel)
	assert.NotEmptyStr(config.Server)
	if config.Timeout <= 0 {
		config.Timeout = defaultEmailTimeout
	}
	return Email{
		config: config,
		tel:    telemetry.NewScopedAPI("notify", tel),
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

// deliver runs a send in the background so a stalled server cannot hold the
// caller past ctx. The abandoned send ends with the server's own connection timeout.
func (e Email) deliver(ctx context.Context, mail *email.Email, addr string, auth smtp.Auth) error {
	done := make(chan error, 1)
	go func() {
		done <- e.send(mail, addr, auth)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e Email) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &Error{Channel: "email", Err: err}
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Restock Watch <%s>", e.config.EmailAddress)
	mail.To = e.config.To
	mail.Subject = msg.Title
	mail.Text = []byte(msg.Text())

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := e.deliver(
		ctx,
		mail,
		addr,
		smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = e.deliver(ctx, mail, addr, nil)
	}
	if err != nil {
		err = &Error{Channel: "email", Err: err}
		e.tel.ReportBroken(report_email_send, err)
		return err
	}
	return nil
}
