package apns

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Reason is the provider's short string classifying why a notification was
// rejected.
type Reason string

// Reason codes returned by APNs, grouped by the HTTP status they accompany.
const (
	// 400
	ReasonBadCollapseID          Reason = "BadCollapseId"
	ReasonBadDeviceToken         Reason = "BadDeviceToken"
	ReasonBadExpirationDate      Reason = "BadExpirationDate"
	ReasonBadMessageID           Reason = "BadMessageId"
	ReasonBadPriority            Reason = "BadPriority"
	ReasonBadTopic               Reason = "BadTopic"
	ReasonDeviceTokenNotForTopic Reason = "DeviceTokenNotForTopic"
	ReasonDuplicateHeaders       Reason = "DuplicateHeaders"
	ReasonIdleTimeout            Reason = "IdleTimeout"
	ReasonMissingDeviceToken     Reason = "MissingDeviceToken"
	ReasonMissingTopic           Reason = "MissingTopic"
	ReasonPayloadEmpty           Reason = "PayloadEmpty"
	ReasonTopicDisallowed        Reason = "TopicDisallowed"

	// 403
	ReasonBadCertificate            Reason = "BadCertificate"
	ReasonBadCertificateEnvironment Reason = "BadCertificateEnvironment"
	ReasonExpiredProviderToken      Reason = "ExpiredProviderToken"
	ReasonForbidden                 Reason = "Forbidden"
	ReasonInvalidProviderToken      Reason = "InvalidProviderToken"
	ReasonMissingProviderToken      Reason = "MissingProviderToken"

	// 404 / 405 / 410 / 413 / 429
	ReasonBadPath          Reason = "BadPath"
	ReasonMethodNotAllowed Reason = "MethodNotAllowed"
	ReasonUnregistered     Reason = "Unregistered"
	ReasonPayloadTooLarge  Reason = "PayloadTooLarge"
	ReasonTooManyRequests  Reason = "TooManyRequests"

	// 5xx
	ReasonInternalServerError Reason = "InternalServerError"
	ReasonServiceUnavailable  Reason = "ServiceUnavailable"
	ReasonShutdown            Reason = "Shutdown"

	// ReasonUnknown stands in when the error body was absent or unparseable.
	ReasonUnknown Reason = "Unknown"
)

var reasonMessages = map[Reason]string{
	ReasonBadCollapseID:             "The collapse identifier exceeds the maximum allowed size.",
	ReasonBadDeviceToken:            "The specified device token was bad. Verify that the request contains a valid token and that the token matches the environment.",
	ReasonBadExpirationDate:         "The apns-expiration value is bad.",
	ReasonBadMessageID:              "The apns-id value is bad.",
	ReasonBadPriority:               "The apns-priority value is bad.",
	ReasonBadTopic:                  "The apns-topic was invalid.",
	ReasonDeviceTokenNotForTopic:    "The device token does not match the specified topic.",
	ReasonDuplicateHeaders:          "One or more headers were repeated.",
	ReasonIdleTimeout:               "Idle time out.",
	ReasonMissingDeviceToken:        "The device token is not specified in the request :path.",
	ReasonMissingTopic:              "The apns-topic header of the request was not specified and was required.",
	ReasonPayloadEmpty:              "The message payload was empty.",
	ReasonTopicDisallowed:           "Pushing to this topic is not allowed.",
	ReasonBadCertificate:            "The certificate was bad.",
	ReasonBadCertificateEnvironment: "The client certificate was for the wrong environment.",
	ReasonExpiredProviderToken:      "The provider token is stale and a new token should be generated.",
	ReasonForbidden:                 "The specified action is not allowed.",
	ReasonInvalidProviderToken:      "The provider token is not valid or the token signature could not be verified.",
	ReasonMissingProviderToken:      "No provider certificate was used to connect to APNs and the authorization header was missing or no provider token was specified.",
	ReasonBadPath:                   "The request contained a bad :path value.",
	ReasonMethodNotAllowed:          "The specified :method was not POST.",
	ReasonUnregistered:              "The device token is inactive for the specified topic.",
	ReasonPayloadTooLarge:           "The message payload was too large. The maximum payload size is 4096 bytes.",
	ReasonTooManyRequests:           "Too many requests were made consecutively to the same device token.",
	ReasonInternalServerError:       "An internal server error occurred.",
	ReasonServiceUnavailable:        "The service is unavailable.",
	ReasonShutdown:                  "The server is shutting down.",
}

// TokenInvalid reports whether the reason means the device token is dead
// for this topic and should be unregistered, never retried.
func (r Reason) TokenInvalid() bool {
	switch r {
	case ReasonBadDeviceToken, ReasonDeviceTokenNotForTopic,
		ReasonMissingDeviceToken, ReasonUnregistered:
		return true
	}
	return false
}

// AuthExpired reports whether the reason means the provider token aged out.
// Callers should invalidate the cached token and resend once.
func (r Reason) AuthExpired() bool {
	return r == ReasonExpiredProviderToken
}

// Retryable reports whether the provider hints the same notification may
// succeed later without caller-side changes.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonTooManyRequests, ReasonIdleTimeout, ReasonShutdown,
		ReasonInternalServerError, ReasonServiceUnavailable:
		return true
	}
	return false
}

// Response is the provider's verdict on one notification.
type Response struct {
	// StatusCode is the raw HTTP status.
	StatusCode int
	// ApnsID identifies the notification: the provider's id header, or the
	// client-supplied id echoed back.
	ApnsID string
	// Reason is set on rejection.
	Reason Reason
	// Message is the human-readable description of Reason.
	Message string
	// Timestamp is set for token-invalidity reasons (status 410): the last
	// time the provider confirmed the token was no longer valid.
	Timestamp time.Time
}

// Sent reports whether the provider accepted the notification.
func (r *Response) Sent() bool {
	return r.StatusCode == http.StatusOK
}

// errorBody is the JSON shape of a non-200 response. The timestamp is unix
// milliseconds.
type errorBody struct {
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

func parseResponse(status int, apnsID string, body []byte) *Response {
	resp := &Response{StatusCode: status, ApnsID: apnsID}
	if status == http.StatusOK {
		return resp
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Reason == "" {
		resp.Reason = ReasonUnknown
		resp.Message = fmt.Sprintf("unexpected status %d", status)
		return resp
	}

	resp.Reason = Reason(parsed.Reason)
	if msg, ok := reasonMessages[resp.Reason]; ok {
		resp.Message = msg
	} else {
		resp.Message = parsed.Reason
	}
	if parsed.Timestamp != 0 {
		resp.Timestamp = time.UnixMilli(parsed.Timestamp)
	}
	return resp
}

// TransportError wraps a failure to complete the HTTP/2 exchange itself:
// DNS, TLS, stream resets, timeouts, cancellation. It is distinct from a
// rejection, which is a *Response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("apns: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
