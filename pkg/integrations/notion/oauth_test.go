package notion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestAuthorizationURL(t *testing.T) {
	c := NewOAuthClient(OAuthConfig{ClientID: "cid", RedirectURI: "http://localhost:3001/api/notion/callback"})

	u, err := url.Parse(c.AuthorizationURL("st4te"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "api.notion.com" || u.Path != "/v1/oauth/authorize" {
		t.Errorf("URL = %s", u)
	}
	q := u.Query()
	want := map[string]string{
		"client_id":     "cid",
		"redirect_uri":  "http://localhost:3001/api/notion/callback",
		"response_type": "code",
		"owner":         "user",
		"state":         "st4te",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("cid:csecret"))
		if r.Header.Get("Authorization") != wantAuth {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Notion-Version") != Version {
			t.Errorf("Notion-Version = %q", r.Header.Get("Notion-Version"))
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["grant_type"] != "authorization_code" || body["code"] != "abc" || body["redirect_uri"] != "http://cb" {
			t.Errorf("body = %v", body)
		}
		fmt.Fprint(w, `{"access_token":"secret_x","refresh_token":"r","bot_id":"bot-9","workspace_name":"Acme"}`)
	}))
	defer srv.Close()

	c := NewOAuthClient(OAuthConfig{ClientID: "cid", ClientSecret: "csecret", RedirectURI: "http://cb"}).WithBaseURL(srv.URL)
	tok, err := c.ExchangeCode(context.Background(), "abc")
	if err != nil {
		t.Fatalf("ExchangeCode() error: %v", err)
	}
	if tok.AccessToken != "secret_x" || tok.BotID != "bot-9" || tok.RefreshToken != "r" {
		t.Errorf("ExchangeCode() = %+v", tok)
	}
}

func TestExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer srv.Close()

	c := NewOAuthClient(OAuthConfig{ClientID: "cid", ClientSecret: "s"}).WithBaseURL(srv.URL)
	if _, err := c.ExchangeCode(context.Background(), "bad"); err == nil {
		t.Error("ExchangeCode() should fail on 400")
	}
}

func TestOAuthConfigConfigured(t *testing.T) {
	tests := []struct {
		cfg  OAuthConfig
		want bool
	}{
		{OAuthConfig{ClientID: "id", ClientSecret: "s"}, true},
		{OAuthConfig{ClientID: " ", ClientSecret: "s"}, false},
		{OAuthConfig{ClientID: "your_client_id", ClientSecret: "s"}, false},
		{OAuthConfig{ClientID: "id", ClientSecret: "your_client_secret"}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.Configured(); got != tt.want {
			t.Errorf("Configured(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error: %v", err)
	}
	b, _ := GenerateState()
	if len(a) != 32 || a == b {
		t.Errorf("GenerateState() = %q, %q; want distinct 32-char hex", a, b)
	}
}
