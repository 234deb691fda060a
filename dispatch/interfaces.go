package dispatch

import (
	"context"

	apns "github.com/tinywideclouds/go-apns"
)

// Pusher is the subset of the apns.Client methods the dispatcher uses.
// This allows mocking for unit tests.
type Pusher interface {
	Push(ctx context.Context, n *apns.Notification) (*apns.Response, error)
	InvalidateToken()
}

// Registry defines the contract for managing per-recipient device tokens.
// It allows the dispatcher to know "where" to send notifications for a user
// and to forget tokens the provider reports dead.
type Registry interface {
	// Register adds or updates a device token for a recipient (upsert).
	Register(ctx context.Context, recipient, deviceToken string) error

	// Unregister removes a device token for a recipient.
	Unregister(ctx context.Context, recipient, deviceToken string) error

	// Tokens retrieves all active device tokens for a recipient.
	Tokens(ctx context.Context, recipient string) ([]string, error)
}

// Content is the displayable part of a notification, shared across all of a
// recipient's devices.
type Content struct {
	Title string
	Body  string
	Sound string
}
