package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"
)

var (
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
	ErrUnknownProvider       = errors.New("unsupported oauth provider")
	ErrOAuthEmailMissing     = errors.New("email not provided by oauth provider")
	ErrOAuthUpstream         = errors.New("oauth provider request failed")
)

const (
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	linkedinProfileURL = "https://api.linkedin.com/v2/people/~"
	linkedinEmailURL   = "https://api.linkedin.com/v2/emailAddress?q=members&projection=(elements*(handle~))"
)

// OAuthProfile is the provider-agnostic identity record produced by
// normalizing a provider's user-info response.
type OAuthProfile struct {
	Email      string
	FirstName  *string
	LastName   *string
	ProviderID *string
	AvatarURL  *string
}

// OAuthService exchanges authorization codes and fetches provider profiles
// for Google and LinkedIn. A provider with empty credentials stays nil and
// surfaces ErrProviderNotConfigured.
type OAuthService struct {
	google   *oauth2.Config
	linkedin *oauth2.Config

	// Overridable for tests
	googleUserInfoURL  string
	linkedinProfileURL string
	linkedinEmailURL   string
}

func NewOAuthService(appURL, googleID, googleSecret, linkedinID, linkedinSecret string) *OAuthService {
	s := &OAuthService{
		googleUserInfoURL:  googleUserInfoURL,
		linkedinProfileURL: linkedinProfileURL,
		linkedinEmailURL:   linkedinEmailURL,
	}

	if googleID != "" && googleSecret != "" {
		s.google = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  appURL + "/api/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	if linkedinID != "" && linkedinSecret != "" {
		s.linkedin = &oauth2.Config{
			ClientID:     linkedinID,
			ClientSecret: linkedinSecret,
			RedirectURL:  appURL + "/api/auth/linkedin/callback",
			Scopes:       []string{"r_liteprofile", "r_emailaddress"},
			Endpoint:     linkedin.Endpoint,
		}
	}

	return s
}

func (s *OAuthService) config(provider string) (*oauth2.Config, error) {
	switch provider {
	case "google":
		if s.google == nil {
			return nil, ErrProviderNotConfigured
		}
		return s.google, nil
	case "linkedin":
		if s.linkedin == nil {
			return nil, ErrProviderNotConfigured
		}
		return s.linkedin, nil
	default:
		return nil, ErrUnknownProvider
	}
}

// AuthURL returns the provider consent-screen URL carrying the CSRF state.
func (s *OAuthService) AuthURL(provider, state string) (string, error) {
	cfg, err := s.config(provider)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Profile exchanges the authorization code and fetches the provider's
// normalized user profile.
func (s *OAuthService) Profile(ctx context.Context, provider, code string) (*OAuthProfile, error) {
	cfg, err := s.config(provider)
	if err != nil {
		return nil, err
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrOAuthUpstream, err)
	}

	client := cfg.Client(ctx, token)
	switch provider {
	case "google":
		return s.googleProfile(client)
	case "linkedin":
		return s.linkedinProfile(client)
	}
	return nil, ErrUnknownProvider
}

func (s *OAuthService) googleProfile(client *http.Client) (*OAuthProfile, error) {
	var info struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	err := getJSON(client, s.googleUserInfoURL, &info)
	if err != nil {
		return nil, err
	}

	if info.Email == "" {
		return nil, ErrOAuthEmailMissing
	}

	return &OAuthProfile{
		Email:      info.Email,
		FirstName:  optional(info.GivenName),
		LastName:   optional(info.FamilyName),
		ProviderID: optional(info.ID),
		AvatarURL:  optional(info.Picture),
	}, nil
}

func (s *OAuthService) linkedinProfile(client *http.Client) (*OAuthProfile, error) {
	var profile struct {
		ID        string `json:"id"`
		FirstName struct {
			Localized map[string]string `json:"localized"`
		} `json:"firstName"`
		LastName struct {
			Localized map[string]string `json:"localized"`
		} `json:"lastName"`
	}
	err := getJSON(client, s.linkedinProfileURL, &profile)
	if err != nil {
		return nil, err
	}

	var emailResp struct {
		Elements []struct {
			Handle struct {
				EmailAddress string `json:"emailAddress"`
			} `json:"handle~"`
		} `json:"elements"`
	}
	err = getJSON(client, s.linkedinEmailURL, &emailResp)
	if err != nil {
		return nil, err
	}

	email := ""
	if len(emailResp.Elements) > 0 {
		email = emailResp.Elements[0].Handle.EmailAddress
	}
	if email == "" {
		return nil, ErrOAuthEmailMissing
	}

	return &OAuthProfile{
		Email:      email,
		FirstName:  firstLocalized(profile.FirstName.Localized),
		LastName:   firstLocalized(profile.LastName.Localized),
		ProviderID: optional(profile.ID),
	}, nil
}

// firstLocalized picks the first available value from LinkedIn's
// locale-keyed name map (usually the English variant). The provider gives no
// preference ordering, so any present value is acceptable.
func firstLocalized(localized map[string]string) *string {
	for _, v := range localized {
		if v != "" {
			return &v
		}
	}
	return nil
}

func getJSON(client *http.Client, url string, dest any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOAuthUpstream, err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrOAuthUpstream, url, resp.StatusCode)
	}

	err = json.NewDecoder(resp.Body).Decode(dest)
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrOAuthUpstream, url, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
