package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPExchangeClient_V2(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"client_id":     r.PostFormValue("client_id"),
			"client_secret": r.PostFormValue("client_secret"),
			"code":          r.PostFormValue("code"),
			"redirect_uri":  r.PostFormValue("redirect_uri"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ok": true,
			"access_token": "xoxb-token",
			"token_type": "bot",
			"scope": "chat:write",
			"bot_user_id": "U_BOT",
			"app_id": "A1",
			"team": {"id": "T1", "name": "workspace"},
			"authed_user": {"id": "U1", "scope": "users:read", "access_token": "xoxp-token"}
		}`))
	}))
	defer server.Close()

	client := NewHTTPExchangeClient(ExchangeClientConfig{
		Version:      AuthVersionV2,
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	resp, err := client.Exchange(context.Background(), ExchangeRequest{
		Code:        "auth-code",
		RedirectURI: "https://example.com/callback",
	})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if gotPath != "/api/oauth.v2.access" {
		t.Fatalf("expected v2 exchange path, got %q", gotPath)
	}
	if gotForm["client_id"] != "client-id" || gotForm["client_secret"] != "client-secret" {
		t.Fatalf("expected client credentials in form, got %v", gotForm)
	}
	if gotForm["code"] != "auth-code" || gotForm["redirect_uri"] != "https://example.com/callback" {
		t.Fatalf("expected code and redirect uri in form, got %v", gotForm)
	}
	if resp.AccessToken != "xoxb-token" || resp.Team == nil || resp.Team.ID != "T1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.AuthedUser == nil || resp.AuthedUser.AccessToken != "xoxp-token" {
		t.Fatalf("expected authed user block, got %+v", resp.AuthedUser)
	}
}

func TestHTTPExchangeClient_V1Path(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ok": true,
			"access_token": "xoxp-legacy",
			"scope": "read,post",
			"team_id": "T1",
			"team_name": "workspace",
			"user_id": "U1",
			"bot": {"bot_user_id": "U_BOT", "bot_access_token": "xoxb-legacy"}
		}`))
	}))
	defer server.Close()

	client := NewHTTPExchangeClient(ExchangeClientConfig{
		Version:      AuthVersionV1,
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	resp, err := client.Exchange(context.Background(), ExchangeRequest{Code: "auth-code"})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if gotPath != "/api/oauth.access" {
		t.Fatalf("expected v1 exchange path, got %q", gotPath)
	}
	if resp.TeamID != "T1" || resp.Bot == nil || resp.Bot.BotAccessToken != "xoxb-legacy" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHTTPExchangeClient_RemoteRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": false, "error": "invalid_code"}`))
	}))
	defer server.Close()

	client := NewHTTPExchangeClient(ExchangeClientConfig{
		Version:      AuthVersionV2,
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	if _, err := client.Exchange(context.Background(), ExchangeRequest{Code: "bad"}); err == nil {
		t.Fatalf("expected error for ok=false response")
	}
}

func TestHTTPExchangeClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPExchangeClient(ExchangeClientConfig{
		Version:      AuthVersionV2,
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	if _, err := client.Exchange(context.Background(), ExchangeRequest{Code: "abc"}); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}

func TestHTTPExchangeClient_RequiresCode(t *testing.T) {
	client := NewHTTPExchangeClient(ExchangeClientConfig{
		Version:      AuthVersionV2,
		BaseURL:      "https://example.com",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	if _, err := client.Exchange(context.Background(), ExchangeRequest{}); err == nil {
		t.Fatalf("expected error for empty code")
	}
}
