package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_webhook_send = "webhook.send"

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

// Webhook posts messages as embeds to a discord compatible webhook.
type Webhook struct {
	http     *resty.Client
	url      string
	username string
	tel      telemetry.API
}

func NewWebhook(webhookUrl, username string, tel telemetry.API) (Webhook, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("notify", tel)

	parsed, err := url.Parse(webhookUrl)
	if err != nil {
		return Webhook{}, fmt.Errorf("parse webhook url: %w", err)
	}
	if !parsed.IsAbs() {
		return Webhook{}, fmt.Errorf("webhook url must be absolute, got %q", webhookUrl)
	}

	client := resty.New()
	client.SetTimeout(15 * time.Second)
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, tel)

	return Webhook{
		http:     client,
		url:      webhookUrl,
		username: username,
		tel:      tel,
	}, nil
}

func toEmbed(msg Message) embed {
	e := embed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       int(msg.Color),
	}
	if !msg.Timestamp.IsZero() {
		e.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range msg.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}

func (w Webhook) Send(ctx context.Context, msg Message) error {
	res, err := w.http.R().
		SetContext(ctx).
		SetBody(webhookPayload{
			Username: w.username,
			Embeds:   []embed{toEmbed(msg)},
		}).
		Post(w.url)
	if err != nil {
		err = &Error{Channel: "webhook", Err: err}
		w.tel.ReportBroken(report_webhook_send, err)
		return err
	}
	if res.IsError() {
		err = &Error{Channel: "webhook", Status: res.StatusCode()}
		w.tel.ReportBroken(report_webhook_send, err, res.String())
		return err
	}
	return nil
}
