package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidSession is returned whenever the external identity provider
// cannot verify a session id, for any reason.
var ErrInvalidSession = errors.New("invalid session")

// SessionData is the verified identity tuple returned by the external
// identity provider in exchange for a one-time session id.
type SessionData struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

// IdentityClient exchanges opaque session ids for verified user identities
// against an external HTTP identity service.
type IdentityClient struct {
	baseURL string
	client  *http.Client
}

// NewIdentityClient creates an IdentityClient targeting the identity service
// at baseURL. Calls fail after 10 seconds; there are no retries.
func NewIdentityClient(baseURL string) *IdentityClient {
	return &IdentityClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchSessionData calls the identity service with the given session id and
// returns the verified identity tuple. Any network failure, non-2xx response
// or missing required field fails with ErrInvalidSession.
func (c *IdentityClient) FetchSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/session-data", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: identity service returned %d", ErrInvalidSession, resp.StatusCode)
	}

	data := &SessionData{}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if data.Email == "" || data.SessionToken == "" {
		return nil, fmt.Errorf("%w: incomplete session data", ErrInvalidSession)
	}

	return data, nil
}
