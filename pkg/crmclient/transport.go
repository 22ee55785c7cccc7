package crmclient

import (
	"net/http"

	"go.uber.org/zap"
)

// authTransport attaches the session token to every request. A 401 answer
// ends the session and fires onUnauthorized.
type authTransport struct {
	base           http.RoundTripper
	session        *Session
	onUnauthorized func()
	logger         *zap.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.session.Token(); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.logger.Debug("session rejected", zap.String("path", req.URL.Path))
		t.session.Clear()
		if t.onUnauthorized != nil {
			t.onUnauthorized()
		}
	}
	return resp, nil
}
