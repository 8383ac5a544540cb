package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleProfileNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "g-123",
			"email": "alice@example.com",
			"given_name": "Alice",
			"family_name": "Doe",
			"picture": "https://example.com/alice.png"
		}`))
	}))
	defer server.Close()

	s := NewOAuthService("http://localhost:8000", "id", "secret", "", "")
	s.googleUserInfoURL = server.URL

	profile, err := s.googleProfile(server.Client())
	if err != nil {
		t.Fatalf("googleProfile failed: %v", err)
	}
	if profile.Email != "alice@example.com" {
		t.Errorf("expected email, got %s", profile.Email)
	}
	if profile.FirstName == nil || *profile.FirstName != "Alice" {
		t.Error("expected first name Alice")
	}
	if profile.AvatarURL == nil || *profile.AvatarURL != "https://example.com/alice.png" {
		t.Error("expected avatar url")
	}
}

func TestGoogleProfileMissingEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "g-123"}`))
	}))
	defer server.Close()

	s := NewOAuthService("http://localhost:8000", "id", "secret", "", "")
	s.googleUserInfoURL = server.URL

	_, err := s.googleProfile(server.Client())
	if !errors.Is(err, ErrOAuthEmailMissing) {
		t.Errorf("expected ErrOAuthEmailMissing, got %v", err)
	}
}

func TestLinkedInProfileNormalization(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "li-456",
			"firstName": {"localized": {"en_US": "Bob"}},
			"lastName": {"localized": {"en_US": "Smith"}}
		}`))
	})
	mux.HandleFunc("/email", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"elements": [{"handle~": {"emailAddress": "bob@example.com"}}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewOAuthService("http://localhost:8000", "", "", "id", "secret")
	s.linkedinProfileURL = server.URL + "/profile"
	s.linkedinEmailURL = server.URL + "/email"

	profile, err := s.linkedinProfile(server.Client())
	if err != nil {
		t.Fatalf("linkedinProfile failed: %v", err)
	}
	if profile.Email != "bob@example.com" {
		t.Errorf("expected email, got %s", profile.Email)
	}
	if profile.FirstName == nil || *profile.FirstName != "Bob" {
		t.Error("expected localized first name")
	}
	if profile.ProviderID == nil || *profile.ProviderID != "li-456" {
		t.Error("expected provider id")
	}
}

func TestLinkedInProfileMissingEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "li-456", "firstName": {"localized": {}}, "lastName": {"localized": {}}}`))
	})
	mux.HandleFunc("/email", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"elements": []}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewOAuthService("http://localhost:8000", "", "", "id", "secret")
	s.linkedinProfileURL = server.URL + "/profile"
	s.linkedinEmailURL = server.URL + "/email"

	_, err := s.linkedinProfile(server.Client())
	if !errors.Is(err, ErrOAuthEmailMissing) {
		t.Errorf("expected ErrOAuthEmailMissing, got %v", err)
	}
}

func TestFirstLocalized(t *testing.T) {
	if firstLocalized(map[string]string{}) != nil {
		t.Error("empty map should yield nil")
	}
	if firstLocalized(map[string]string{"en_US": ""}) != nil {
		t.Error("blank values should yield nil")
	}
	got := firstLocalized(map[string]string{"de_DE": "Hans"})
	if got == nil || *got != "Hans" {
		t.Error("expected the single available value")
	}
}

func TestOAuthUnconfiguredProvider(t *testing.T) {
	s := NewOAuthService("http://localhost:8000", "", "", "", "")

	_, err := s.AuthURL("google", "state")
	if !errors.Is(err, ErrProviderNotConfigured) {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}

	_, err = s.AuthURL("github", "state")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}
