// Package payload builds the JSON body of an APNs notification.
//
// Alert fields live under the reserved top-level "aps" dictionary; custom
// application data sits alongside it as sibling top-level keys.
package payload

import "encoding/json"

// Payload is a chainable builder for the APNs JSON body.
//
//	payload.NewPayload().AlertTitle("hello").AlertBody("world").Badge(1)
type Payload struct {
	content map[string]interface{}
}

type aps struct {
	Alert            *alert      `json:"alert,omitempty"`
	Badge            interface{} `json:"badge,omitempty"`
	Sound            string      `json:"sound,omitempty"`
	ContentAvailable int         `json:"content-available,omitempty"`
	MutableContent   int         `json:"mutable-content,omitempty"`
}

type alert struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// NewPayload returns a payload with an empty aps dictionary.
func NewPayload() *Payload {
	return &Payload{
		content: map[string]interface{}{
			"aps": &aps{},
		},
	}
}

// AlertTitle sets the short title shown in the notification banner.
func (p *Payload) AlertTitle(title string) *Payload {
	p.alert().Title = title
	return p
}

// AlertBody sets the notification text.
func (p *Payload) AlertBody(body string) *Payload {
	p.alert().Body = body
	return p
}

// Sound sets the name of the sound file to play on delivery.
func (p *Payload) Sound(sound string) *Payload {
	p.aps().Sound = sound
	return p
}

// Badge sets the number displayed on the app icon. Badge(0) clears the
// badge; not calling Badge at all leaves the badge unchanged on device
// (no "badge" key is emitted).
func (p *Payload) Badge(n int) *Payload {
	p.aps().Badge = n
	return p
}

// ContentAvailable marks the notification as a silent background update.
func (p *Payload) ContentAvailable() *Payload {
	p.aps().ContentAvailable = 1
	return p
}

// MutableContent allows a notification service app extension to modify the
// payload before display.
func (p *Payload) MutableContent() *Payload {
	p.aps().MutableContent = 1
	return p
}

// Custom adds an application-defined key alongside the aps dictionary.
// The reserved "aps" key is left untouched.
func (p *Payload) Custom(key string, value interface{}) *Payload {
	if key == "aps" {
		return p
	}
	p.content[key] = value
	return p
}

// MarshalJSON renders the payload in the shape APNs requires.
func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.content)
}

func (p *Payload) aps() *aps {
	return p.content["aps"].(*aps)
}

func (p *Payload) alert() *alert {
	a := p.aps()
	if a.Alert == nil {
		a.Alert = &alert{}
	}
	return a.Alert
}
