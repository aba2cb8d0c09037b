// Package google implements the server-side Google authorization code flow.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"storefront/config"
	"storefront/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var defaultScopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// OAuthService exchanges authorization codes with Google and reads the profile.
type OAuthService struct {
	oauthConfig *oauth2.Config
	userInfoURL string
}

func NewOAuthService(cfg *config.Config) service.GoogleOAuthService {
	return newOAuthService(cfg.GoogleOAuth, endpoints.Google, googleUserInfoURL)
}

func newOAuthService(cfg *config.GoogleOAuthConfig, endpoint oauth2.Endpoint, userInfoURL string) *OAuthService {
	return &OAuthService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       defaultScopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// AuthorizationURL asks for offline access so Google also returns a refresh token.
func (s *OAuthService) AuthorizationURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// FetchProfile exchanges code for a token and reads the userinfo endpoint with it.
func (s *OAuthService) FetchProfile(ctx context.Context, code string) (*service.GoogleProfile, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange google authorization code")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user info request")
	}

	resp, err := s.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get google user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return nil, errors.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var googleUser struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, errors.Wrap(err, "failed to decode user info response")
	}

	return &service.GoogleProfile{
		Email:   googleUser.Email,
		Name:    googleUser.Name,
		Picture: googleUser.Picture,
	}, nil
}
