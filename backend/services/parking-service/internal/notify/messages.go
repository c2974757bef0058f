package notify

import (
	"fmt"
	"strconv"
	"time"
)

const (
	colorArriving = 320671
	colorLeaving  = 16766254
	colorAlert    = 16711680

	noneValue = "None"
)

// WebhookMessage is a Discord compatible webhook payload.
type WebhookMessage struct {
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds"`
}

type Embed struct {
	Author EmbedAuthor  `json:"author"`
	Color  int          `json:"color"`
	Fields []EmbedField `json:"fields"`
	Footer EmbedFooter  `json:"footer"`
}

type EmbedAuthor struct {
	Name string `json:"name"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// BuildMessage renders an event as a webhook embed.
func BuildMessage(event Event, avatarURL string) (WebhookMessage, error) {
	var embed Embed
	switch event.Kind {
	case KindMeterStatusChange:
		if event.Meter == nil {
			return WebhookMessage{}, fmt.Errorf("notify: %s event without meter", event.Kind)
		}
		embed = meterEmbed(event)
	case KindSessionUnconfirmed, KindSessionUnpaid:
		if event.Session == nil {
			return WebhookMessage{}, fmt.Errorf("notify: %s event without session", event.Kind)
		}
		embed = sessionEmbed(event)
	default:
		return WebhookMessage{}, fmt.Errorf("notify: unknown event kind %q", event.Kind)
	}
	return WebhookMessage{AvatarURL: avatarURL, Embeds: []Embed{embed}}, nil
}

func meterEmbed(event Event) Embed {
	m := event.Meter
	color := colorLeaving
	if m.IsOccupied {
		color = colorArriving
	}
	cost := noneValue
	if m.Cost != nil {
		cost = formatFloat(*m.Cost)
	}
	return Embed{
		Author: EmbedAuthor{Name: "Meter Status Change"},
		Color:  color,
		Fields: []EmbedField{
			{Name: "meterId", Value: m.ID},
			{Name: "unitPrice", Value: formatFloat(m.UnitPrice)},
			{Name: "isOccupied", Value: strconv.FormatBool(m.IsOccupied), Inline: true},
			{Name: "licensePlate", Value: orNone(m.LicensePlate), Inline: true},
			{Name: "parkingId", Value: orNone(m.ParkingID)},
			{Name: "cost", Value: cost},
		},
		Footer: EmbedFooter{Text: "updatedAt: " + formatTime(m.UpdatedAt)},
	}
}

func sessionEmbed(event Event) Embed {
	s := event.Session
	title := "Parking Has No Payment"
	if event.Kind == KindSessionUnconfirmed {
		title = "Parking Not Confirmed"
	}
	return Embed{
		Author: EmbedAuthor{Name: title},
		Color:  colorAlert,
		Fields: []EmbedField{
			{Name: "meterId", Value: s.MeterID, Inline: true},
			{Name: "parkingId", Value: s.ID, Inline: true},
			{Name: "licensePlate", Value: s.LicensePlate},
			{Name: "startTime", Value: formatTime(s.StartTime)},
			{Name: "paymentId", Value: orNone(s.PaymentID)},
		},
		Footer: EmbedFooter{Text: "updatedAt: " + formatTime(s.UpdatedAt)},
	}
}

func orNone(v *string) string {
	if v == nil || *v == "" {
		return noneValue
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
