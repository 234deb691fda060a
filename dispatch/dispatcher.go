// Package dispatch fans one logical notification out to every device token
// registered for a recipient, acting on the APNs verdict per token: dead
// tokens are unregistered, an expired provider token triggers exactly one
// forced refresh and resend, and everything else is surfaced in the receipt.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	apns "github.com/tinywideclouds/go-apns"
)

type Dispatcher struct {
	client   Pusher
	registry Registry
	topic    string // The App Bundle ID (e.g. com.tinywide.messenger)
	logger   *slog.Logger
}

// NewDispatcher creates a configured dispatcher. The topic is the app bundle
// ID every outgoing notification targets.
func NewDispatcher(client Pusher, registry Registry, topic string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:   client,
		registry: registry,
		topic:    topic,
		logger:   logger.With("component", "APNSDispatcher"),
	}
}

// Dispatch sends the notification to every device token registered for the
// recipient and returns a receipt summarizing the outcomes.
//
// APNs is unary (one request per token), so tokens are pushed sequentially.
// Delivery is best effort: per-token failures are logged and counted, not
// returned. Only a registry lookup failure aborts the whole dispatch.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	recipient string,
	content Content,
	data map[string]string,
) (string, error) {
	tokens, err := d.registry.Tokens(ctx, recipient)
	if err != nil {
		return "", fmt.Errorf("fetch device tokens: %w", err)
	}
	if len(tokens) == 0 {
		d.logger.Info("No devices registered for recipient; dropping notification.", "recipient", recipient)
		return "skipped: no tokens", nil
	}

	successCount := 0
	invalidCount := 0
	failureCount := 0

	for _, deviceToken := range tokens {
		builder := apns.NewNotification(d.topic, deviceToken).
			Title(content.Title).
			Body(content.Body).
			Sound(content.Sound).
			PushType(apns.PushTypeAlert)
		for k, v := range data {
			builder.Custom(k, v)
		}
		n, err := builder.Build()
		if err != nil {
			// Misconfiguration, not a bad device. No token would fare better.
			return "", fmt.Errorf("build notification: %w", err)
		}

		res, err := d.push(ctx, n)
		if err != nil {
			d.logger.Error("APNs transport failed", "token", deviceToken, "err", err)
			transportFailures.Inc()
			failureCount++
			continue
		}

		if res.Sent() {
			pushesSent.Inc()
			successCount++
			continue
		}

		pushesRejected.WithLabelValues(string(res.Reason)).Inc()
		failureCount++
		if res.Reason.TokenInvalid() {
			// Token is dead. Self-heal the registry.
			invalidCount++
			if err := d.registry.Unregister(ctx, recipient, deviceToken); err != nil {
				d.logger.Warn("Failed to unregister dead token", "token", deviceToken, "err", err)
			} else {
				tokensUnregistered.Inc()
			}
		} else {
			// The token might be fine but our configuration is wrong.
			d.logger.Warn("APNs rejected notification", "reason", res.Reason, "status", res.StatusCode)
		}
	}

	receipt := fmt.Sprintf("success:%d invalid:%d total_fail:%d", successCount, invalidCount, failureCount)
	return receipt, nil
}

// push sends one notification, forcing a single token refresh and resend
// when APNs reports the provider token expired.
func (d *Dispatcher) push(ctx context.Context, n *apns.Notification) (*apns.Response, error) {
	res, err := d.client.Push(ctx, n)
	if err != nil || res.Sent() || !res.Reason.AuthExpired() {
		return res, err
	}

	d.logger.Info("Provider token expired; refreshing and resending once")
	d.client.InvalidateToken()
	return d.client.Push(ctx, n)
}
