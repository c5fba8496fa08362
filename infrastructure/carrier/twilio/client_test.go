package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatrelay/infrastructure/carrier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{AccountSID: "AC123", AuthToken: "secret", APIBase: srv.URL})
}

func TestSend(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+15559999", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+15550001", r.PostForm.Get("To"))
		assert.Equal(t, "hello", r.PostForm.Get("Body"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM0001","status":"queued"}`))
	})

	res, err := c.Send(context.Background(), "whatsapp:+15559999", "whatsapp:+15550001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "SM0001", res.ProviderMessageID)
}

func TestSendClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind carrier.ErrorKind
		wantCode int
	}{
		{
			name:     "Bad credentials",
			status:   http.StatusUnauthorized,
			body:     `{"code":20003,"message":"Authenticate","status":401}`,
			wantKind: carrier.KindAuth,
			wantCode: 20003,
		},
		{
			name:     "Invalid destination",
			status:   http.StatusBadRequest,
			body:     `{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`,
			wantKind: carrier.KindInvalidAddress,
			wantCode: 21211,
		},
		{
			name:     "Rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"code":20429,"message":"Too Many Requests","status":429}`,
			wantKind: carrier.KindRateLimited,
			wantCode: 20429,
		},
		{
			name:     "Server error without body",
			status:   http.StatusInternalServerError,
			body:     ``,
			wantKind: carrier.KindProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Send(context.Background(), "from", "to", "body")
			require.Error(t, err)

			var cerr *carrier.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.wantKind, cerr.Kind)
			assert.Equal(t, tt.status, cerr.StatusCode)
			assert.Equal(t, tt.wantCode, cerr.ProviderCode)
			assert.NotEmpty(t, cerr.Message)
		})
	}
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(Config{AccountSID: "AC123", AuthToken: "secret", APIBase: base})

	_, err := c.Send(context.Background(), "from", "to", "body")
	assert.Equal(t, carrier.KindNetwork, carrier.KindOf(err))
}

func TestSendMissingSID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	})

	_, err := c.Send(context.Background(), "from", "to", "body")
	assert.Equal(t, carrier.KindProvider, carrier.KindOf(err))
}
