package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"restockwatch/internal/extract"
	"restockwatch/internal/fetch"
	"restockwatch/internal/product"
	"restockwatch/internal/restock"
)

// Color is the severity tag of a message, rendered as the embed color by chat channels.
type Color int

const (
	ColorRestock Color = 0x2ecc71
	ColorSummary Color = 0x3498db
	ColorError   Color = 0xe74c3c
)

// limits of a discord embed, the strictest channel we deliver to
const (
	maxTitleLength = 256
	maxFieldValue  = 1024
	maxFields      = 25
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Message struct {
	Title     string
	Body      string
	Color     Color
	Fields    []Field
	Timestamp time.Time
}

// Text renders the message as plain text.
func (m Message) Text() string {
	var sb strings.Builder
	sb.WriteString(m.Title)
	sb.WriteString("\n\n")
	if m.Body != "" {
		sb.WriteString(m.Body)
		sb.WriteString("\n\n")
	}
	for _, f := range m.Fields {
		fmt.Fprintf(&sb, "%s: %s\n", f.Name, f.Value)
	}
	if !m.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "\n%s\n", m.Timestamp.Format(time.RFC1123))
	}
	return sb.String()
}

// truncate limits s to max characters, cutting on a rune boundary.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

func productTitle(name string) string {
	if name == "" {
		return "product"
	}
	return name
}

// RestockAlert has one field per variant that came back in stock.
func RestockAlert(productName, productURL string, events []restock.Event) Message {
	msg := Message{
		Title: truncate(fmt.Sprintf("Back in stock: %s", productTitle(productName)), maxTitleLength),
		Color: ColorRestock,
	}
	if len(events) == 0 {
		return msg
	}
	msg.Timestamp = events[0].DetectedAt

	noun := "color is"
	if len(events) > 1 {
		noun = "colors are"
	}
	msg.Body = fmt.Sprintf("%d %s available again.\n%s", len(events), noun, productURL)

	for i, e := range events {
		if i == maxFields {
			msg.Body += fmt.Sprintf("\n%d more not listed.", len(events)-maxFields)
			break
		}
		msg.Fields = append(msg.Fields, Field{
			Name:   truncate(e.Label, maxTitleLength),
			Value:  fmt.Sprintf("variant `%s`", e.VariantID),
			Inline: true,
		})
	}
	return msg
}

func labelList(entries []product.Entry) string {
	if len(entries) == 0 {
		return "none"
	}
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	return truncate(strings.Join(labels, ", "), maxFieldValue)
}

// InventorySummary lists the full availability state of a snapshot.
func InventorySummary(productName string, snap product.Snapshot) Message {
	available := snap.Available()
	unavailable := snap.Unavailable()
	unknown := snap.Unknown()

	msg := Message{
		Title: truncate(fmt.Sprintf("Inventory: %s", productTitle(productName)), maxTitleLength),
		Body: fmt.Sprintf(
			"%d of %d colors available.",
			len(available), snap.Len(),
		),
		Color: ColorSummary,
		Fields: []Field{
			{Name: fmt.Sprintf("Available (%d)", len(available)), Value: labelList(available)},
			{Name: fmt.Sprintf("Unavailable (%d)", len(unavailable)), Value: labelList(unavailable)},
		},
		Timestamp: snap.Time(),
	}
	if len(unknown) > 0 {
		msg.Fields = append(msg.Fields, Field{
			Name:  fmt.Sprintf("Unknown (%d)", len(unknown)),
			Value: labelList(unknown),
		})
	}
	return msg
}

func errorStage(err error) string {
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return "fetch"
	}
	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		return "extract"
	}
	return "cycle"
}

// ErrorReport describes a failed cycle.
func ErrorReport(err error, at time.Time) Message {
	return Message{
		Title: "Restock check failed",
		Body:  truncate(err.Error(), maxFieldValue),
		Color: ColorError,
		Fields: []Field{
			{Name: "Stage", Value: errorStage(err), Inline: true},
		},
		Timestamp: at,
	}
}
