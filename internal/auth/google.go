package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

type GoogleProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleVerifier exchanges a Google OAuth access token for the account profile.
type GoogleVerifier struct {
	UserInfoURL string
	// HTTPClient is the transport the oauth2 client wraps; nil uses the default.
	HTTPClient *http.Client
}

func (g GoogleVerifier) Profile(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	if g.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: userinfo status %d: %s", ErrInvalidToken, resp.StatusCode, string(body))
	}

	var p GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if p.Sub == "" || p.Email == "" {
		return nil, fmt.Errorf("%w: userinfo missing sub or email", ErrInvalidToken)
	}
	return &p, nil
}
