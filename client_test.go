package apns_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apns "github.com/tinywideclouds/go-apns"
)

// MockHTTPClient stands in for the HTTP/2 transport collaborator.
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func httpResponse(status int, headers map[string]string, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func newTestClient(t *testing.T, transport apns.HTTPClient) *apns.Client {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	client, err := apns.New(apns.Config{
		TeamID:     "TEAM1234AB",
		KeyID:      "KEY1234ABC",
		SigningKey: key,
		HTTPClient: transport,
	})
	require.NoError(t, err)
	return client
}

func buildNotification(t *testing.T) *apns.Notification {
	t.Helper()
	n, err := apns.NewNotification("com.test.app", "device-1").Title("hi").Build()
	require.NoError(t, err)
	return n
}

func TestPush_Success(t *testing.T) {
	transport := new(MockHTTPClient)
	client := newTestClient(t, transport)

	transport.On("Do", mock.Anything).
		Return(httpResponse(http.StatusOK, map[string]string{"apns-id": "abc"}, ""), nil)

	resp, err := client.Push(context.Background(), buildNotification(t))

	require.NoError(t, err)
	assert.True(t, resp.Sent())
	assert.Equal(t, "abc", resp.ApnsID)
	transport.AssertExpectations(t)
}

func TestPush_RequestShape(t *testing.T) {
	transport := new(MockHTTPClient)
	client := newTestClient(t, transport)

	expires := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	n, err := apns.NewNotification("com.test.app", "aabbcc").
		Title("hi").
		Priority(apns.PriorityHigh).
		Expiration(expires).
		CollapseID("thread-9").
		PushType(apns.PushTypeAlert).
		Build()
	require.NoError(t, err)

	var captured *http.Request
	transport.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		captured = req
		return true
	})).Return(httpResponse(http.StatusOK, nil, ""), nil)

	resp, err := client.Push(context.Background(), n)
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, apns.HostProduction+"/3/device/aabbcc", captured.URL.String())
	assert.True(t, strings.HasPrefix(captured.Header.Get("authorization"), "bearer "))
	assert.Equal(t, "com.test.app", captured.Header.Get("apns-topic"))
	assert.Equal(t, "10", captured.Header.Get("apns-priority"))
	assert.Equal(t, "1788220800", captured.Header.Get("apns-expiration"))
	assert.Equal(t, "thread-9", captured.Header.Get("apns-collapse-id"))
	assert.Equal(t, "alert", captured.Header.Get("apns-push-type"))
	assert.Equal(t, "application/json; charset=utf-8", captured.Header.Get("content-type"))

	body, readErr := io.ReadAll(captured.Body)
	require.NoError(t, readErr)
	assert.JSONEq(t, `{"aps":{"alert":{"title":"hi"}}}`, string(body))

	// No client-supplied id: one is generated and echoed into the result.
	generated := captured.Header.Get("apns-id")
	_, parseErr := uuid.Parse(generated)
	assert.NoError(t, parseErr)
	assert.Equal(t, generated, resp.ApnsID)
}

func TestPush_OptionalHeadersOmittedWhenUnset(t *testing.T) {
	transport := new(MockHTTPClient)
	client := newTestClient(t, transport)

	var captured *http.Request
	transport.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		captured = req
		return true
	})).Return(httpResponse(http.StatusOK, nil, ""), nil)

	_, err := client.Push(context.Background(), buildNotification(t))
	require.NoError(t, err)
	require.NotNil(t, captured)

	for _, header := range []string{"apns-priority", "apns-expiration", "apns-collapse-id", "apns-push-type"} {
		_, present := captured.Header[http.CanonicalHeaderKey(header)]
		assert.False(t, present, "header %s must be omitted when unset", header)
	}
}

func TestPush_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason apns.Reason
	}{
		{"Unregistered device", http.StatusGone, `{"reason":"Unregistered","timestamp":1756500000000}`, apns.ReasonUnregistered},
		{"Expired provider token", http.StatusForbidden, `{"reason":"ExpiredProviderToken"}`, apns.ReasonExpiredProviderToken},
		{"Bad device token", http.StatusBadRequest, `{"reason":"BadDeviceToken"}`, apns.ReasonBadDeviceToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transport := new(MockHTTPClient)
			client := newTestClient(t, transport)
			transport.On("Do", mock.Anything).
				Return(httpResponse(tc.status, nil, tc.body), nil)

			resp, err := client.Push(context.Background(), buildNotification(t))

			require.NoError(t, err)
			assert.False(t, resp.Sent())
			assert.Equal(t, tc.wantReason, resp.Reason)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("Timestamp parsed as unix milliseconds", func(t *testing.T) {
		transport := new(MockHTTPClient)
		client := newTestClient(t, transport)
		transport.On("Do", mock.Anything).
			Return(httpResponse(http.StatusGone, nil, `{"reason":"Unregistered","timestamp":1756500000000}`), nil)

		resp, err := client.Push(context.Background(), buildNotification(t))
		require.NoError(t, err)
		assert.Equal(t, time.UnixMilli(1756500000000), resp.Timestamp)
		assert.True(t, resp.Reason.TokenInvalid())
	})

	t.Run("Unparseable error body", func(t *testing.T) {
		transport := new(MockHTTPClient)
		client := newTestClient(t, transport)
		transport.On("Do", mock.Anything).
			Return(httpResponse(http.StatusInternalServerError, nil, "<html>nope</html>"), nil)

		resp, err := client.Push(context.Background(), buildNotification(t))
		require.NoError(t, err)
		assert.Equal(t, apns.ReasonUnknown, resp.Reason)
		assert.Contains(t, resp.Message, "500")
	})
}

func TestPush_TransportFailure(t *testing.T) {
	transport := new(MockHTTPClient)
	client := newTestClient(t, transport)

	cause := errors.New("connection reset by peer")
	transport.On("Do", mock.Anything).Return(nil, cause)

	resp, err := client.Push(context.Background(), buildNotification(t))

	assert.Nil(t, resp, "a transport failure is not a rejection")
	var terr *apns.TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, cause)
}

func TestPush_ValidatesBeforeNetwork(t *testing.T) {
	transport := new(MockHTTPClient)
	client := newTestClient(t, transport)

	tests := []struct {
		name    string
		n       *apns.Notification
		wantErr error
	}{
		{"Missing topic", &apns.Notification{DeviceToken: "d", Payload: []byte("{}")}, apns.ErrMissingTopic},
		{"Missing device token", &apns.Notification{Topic: "t", Payload: []byte("{}")}, apns.ErrMissingDeviceToken},
		{"Empty payload", &apns.Notification{Topic: "t", DeviceToken: "d"}, apns.ErrPayloadEmpty},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Push(context.Background(), tc.n)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	transport.AssertNotCalled(t, "Do", mock.Anything)
}

func TestClient_HostSwitching(t *testing.T) {
	transport := new(MockHTTPClient)
	client := newTestClient(t, transport).Development()

	var captured *http.Request
	transport.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		captured = req
		return true
	})).Return(httpResponse(http.StatusOK, nil, ""), nil)

	_, err := client.Push(context.Background(), buildNotification(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(captured.URL.String(), apns.HostDevelopment))

	client.Production()
	_, err = client.Push(context.Background(), buildNotification(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(captured.URL.String(), apns.HostProduction))
}
