// Package apns is a client for the Apple Push Notification service HTTP/2
// provider API with token-based (.p8 key) authentication.
//
// A Notification is assembled with NewNotification and handed to
// Client.Push, which returns the provider's verdict as a *Response or a
// *TransportError when the exchange itself failed.
package apns

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-apns/payload"
)

// MaxPayloadSize is the provider's limit on the encoded JSON body. Larger
// payloads are rejected with PayloadTooLarge, so Build fails early instead.
const MaxPayloadSize = 4096

// Priority values for the apns-priority header.
type Priority int

const (
	// PriorityLow delivers at a time that conserves device power.
	PriorityLow Priority = 5
	// PriorityHigh delivers immediately.
	PriorityHigh Priority = 10
)

// PushType values for the apns-push-type header.
type PushType string

const (
	PushTypeAlert      PushType = "alert"
	PushTypeBackground PushType = "background"
	PushTypeVOIP       PushType = "voip"
)

// Build-time configuration errors.
var (
	ErrMissingTopic       = errors.New("apns: missing topic")
	ErrMissingDeviceToken = errors.New("apns: missing device token")
	ErrPayloadEmpty       = errors.New("apns: payload is empty")
	ErrPayloadTooLarge    = fmt.Errorf("apns: payload exceeds %d bytes", MaxPayloadSize)
	ErrNegativeBadge      = errors.New("apns: badge must not be negative")
	ErrReservedCustomKey  = errors.New("apns: \"aps\" is a reserved payload key")
)

// Notification is one push request: the target, the encoded JSON body, and
// the optional provider headers. Values are immutable once built; each Push
// consumes a fresh Notification.
type Notification struct {
	DeviceToken string
	Topic       string
	Payload     []byte

	// Optional headers; zero values are omitted from the request.
	ApnsID     string
	CollapseID string
	Priority   Priority
	Expiration time.Time
	PushType   PushType
}

// NotificationBuilder assembles a Notification step by step. All setters
// return the builder; Build validates and produces the immutable value.
type NotificationBuilder struct {
	topic       string
	deviceToken string

	title    string
	body     string
	sound    string
	badge    *int
	custom   map[string]interface{}
	rawBytes []byte

	apnsID     string
	collapseID string
	priority   Priority
	expiration time.Time
	pushType   PushType
}

// NewNotification starts a builder for the given topic (app bundle ID) and
// device token.
func NewNotification(topic, deviceToken string) *NotificationBuilder {
	return &NotificationBuilder{
		topic:       topic,
		deviceToken: deviceToken,
	}
}

// Title sets the alert title.
func (b *NotificationBuilder) Title(title string) *NotificationBuilder {
	b.title = title
	return b
}

// Body sets the alert body text.
func (b *NotificationBuilder) Body(body string) *NotificationBuilder {
	b.body = body
	return b
}

// Sound sets the delivery sound.
func (b *NotificationBuilder) Sound(sound string) *NotificationBuilder {
	b.sound = sound
	return b
}

// Badge sets the app icon badge count. Leaving it unset leaves the badge
// unchanged on device; Badge(0) clears it.
func (b *NotificationBuilder) Badge(n int) *NotificationBuilder {
	b.badge = &n
	return b
}

// Custom adds an application-defined top-level payload key.
func (b *NotificationBuilder) Custom(key string, value interface{}) *NotificationBuilder {
	if b.custom == nil {
		b.custom = map[string]interface{}{}
	}
	b.custom[key] = value
	return b
}

// RawPayload supplies a pre-encoded JSON body, bypassing the field setters.
func (b *NotificationBuilder) RawPayload(raw []byte) *NotificationBuilder {
	b.rawBytes = raw
	return b
}

// ID sets a client-chosen apns-id (a canonical UUID). When unset, Push
// generates one.
func (b *NotificationBuilder) ID(id string) *NotificationBuilder {
	b.apnsID = id
	return b
}

// CollapseID lets the provider coalesce notifications sharing the value
// into one on-device display slot.
func (b *NotificationBuilder) CollapseID(id string) *NotificationBuilder {
	b.collapseID = id
	return b
}

// Priority sets the apns-priority header.
func (b *NotificationBuilder) Priority(p Priority) *NotificationBuilder {
	b.priority = p
	return b
}

// Expiration sets the apns-expiration header; the provider discards the
// notification if undeliverable by then.
func (b *NotificationBuilder) Expiration(t time.Time) *NotificationBuilder {
	b.expiration = t
	return b
}

// PushType sets the apns-push-type header.
func (b *NotificationBuilder) PushType(pt PushType) *NotificationBuilder {
	b.pushType = pt
	return b
}

// Build validates the accumulated fields and returns the Notification.
// Nothing touches the network before Build succeeds.
func (b *NotificationBuilder) Build() (*Notification, error) {
	if b.topic == "" {
		return nil, ErrMissingTopic
	}
	if b.deviceToken == "" {
		return nil, ErrMissingDeviceToken
	}
	if b.badge != nil && *b.badge < 0 {
		return nil, ErrNegativeBadge
	}

	body := b.rawBytes
	if body == nil {
		p := payload.NewPayload()
		if b.title != "" {
			p.AlertTitle(b.title)
		}
		if b.body != "" {
			p.AlertBody(b.body)
		}
		if b.sound != "" {
			p.Sound(b.sound)
		}
		if b.badge != nil {
			p.Badge(*b.badge)
		}
		for k, v := range b.custom {
			if k == "aps" {
				return nil, ErrReservedCustomKey
			}
			p.Custom(k, v)
		}
		var err error
		body, err = json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}
	if len(body) == 0 {
		return nil, ErrPayloadEmpty
	}
	if len(body) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	return &Notification{
		DeviceToken: b.deviceToken,
		Topic:       b.topic,
		Payload:     body,
		ApnsID:      b.apnsID,
		CollapseID:  b.collapseID,
		Priority:    b.priority,
		Expiration:  b.expiration,
		PushType:    b.pushType,
	}, nil
}
