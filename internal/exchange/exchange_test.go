package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoer records the outbound request and plays back a canned response.
type fakeDoer struct {
	lastRequest *http.Request
	lastBody    []byte
	status      int
	response    string
	err         error
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.lastRequest = req
	if req.Body != nil {
		f.lastBody, _ = io.ReadAll(req.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(f.response))),
	}, nil
}

func TestExchange_Success(t *testing.T) {
	doer := &fakeDoer{status: 200, response: `{"access_token":"access_token","scope":"write_script_tags"}`}
	c := NewClient(doer, "api-key", "api-secret", zerolog.Nop())

	token, err := c.Exchange(context.Background(), "example.myshopify.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, "access_token", token)

	require.NotNil(t, doer.lastRequest)
	assert.Equal(t, http.MethodPost, doer.lastRequest.Method)
	assert.Equal(t, "https://example.myshopify.com/admin/oauth/access_token", doer.lastRequest.URL.String())
	assert.Equal(t, "application/json", doer.lastRequest.Header.Get("Accept"))
	assert.Equal(t, "application/json", doer.lastRequest.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(doer.lastBody, &body))
	assert.Equal(t, map[string]string{
		"client_id":     "api-key",
		"client_secret": "api-secret",
		"code":          "1234",
	}, body)
}

func TestExchange_Rejected(t *testing.T) {
	cases := []struct {
		name     string
		response string
		reason   string
	}{
		{"error field", `{"error":"invalid_request"}`, "invalid_request"},
		{"errors field", `{"errors":"expired code"}`, "expired code"},
		{"description preferred", `{"error":"invalid_request","error_description":"code was already used"}`, "code was already used"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &fakeDoer{status: 400, response: tc.response}
			c := NewClient(doer, "api-key", "api-secret", zerolog.Nop())

			_, err := c.Exchange(context.Background(), "example.myshopify.com", "1234")
			var rejected *RejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tc.reason, rejected.Reason)
		})
	}
}

func TestExchange_MissingToken(t *testing.T) {
	doer := &fakeDoer{status: 200, response: `{"scope":"write_script_tags"}`}
	c := NewClient(doer, "api-key", "api-secret", zerolog.Nop())

	_, err := c.Exchange(context.Background(), "example.myshopify.com", "1234")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestExchange_TransportError(t *testing.T) {
	doer := &fakeDoer{err: errors.New("connection refused")}
	c := NewClient(doer, "api-key", "api-secret", zerolog.Nop())

	_, err := c.Exchange(context.Background(), "example.myshopify.com", "1234")
	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected), "transport errors are not upstream rejections")
}
