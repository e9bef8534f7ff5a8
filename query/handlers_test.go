package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-install/core"
)

type stubAuthorizer struct {
	authorizeFn func(ctx context.Context, query core.InstallQuery) (core.AuthorizeResult, error)
}

func (s stubAuthorizer) Authorize(ctx context.Context, query core.InstallQuery) (core.AuthorizeResult, error) {
	if s.authorizeFn == nil {
		return core.AuthorizeResult{}, fmt.Errorf("authorize not configured")
	}
	return s.authorizeFn(ctx, query)
}

type stubInstallationReader struct {
	fetchFn func(ctx context.Context, query core.InstallQuery) (core.Installation, error)
}

func (s stubInstallationReader) FetchInstallation(ctx context.Context, query core.InstallQuery) (core.Installation, error) {
	if s.fetchFn == nil {
		return core.Installation{}, fmt.Errorf("fetch installation not configured")
	}
	return s.fetchFn(ctx, query)
}

var (
	_ Authorizer         = stubAuthorizer{}
	_ InstallationReader = stubInstallationReader{}
)

func TestAuthorizeQuery_DelegatesToReader(t *testing.T) {
	expected := core.AuthorizeResult{
		BotToken:  "xoxb-token",
		BotID:     "B1",
		BotUserID: "U_BOT",
		TeamID:    "T1",
	}
	called := false

	reader := stubAuthorizer{
		authorizeFn: func(_ context.Context, query core.InstallQuery) (core.AuthorizeResult, error) {
			called = true
			if query.TeamID != "T1" || query.UserID != "U1" {
				t.Fatalf("unexpected authorize query: %#v", query)
			}
			return expected, nil
		},
	}

	result, err := NewAuthorizeQuery(reader).Query(context.Background(), AuthorizeMessage{
		Query: core.InstallQuery{TeamID: "T1", UserID: "U1"},
	})
	if err != nil {
		t.Fatalf("authorize query: %v", err)
	}
	if !called {
		t.Fatalf("expected authorizer invocation")
	}
	if result.BotToken != expected.BotToken || result.TeamID != expected.TeamID {
		t.Fatalf("unexpected authorize result: %#v", result)
	}
}

func TestAuthorizeQuery_PropagatesReaderErrors(t *testing.T) {
	reader := stubAuthorizer{
		authorizeFn: func(_ context.Context, _ core.InstallQuery) (core.AuthorizeResult, error) {
			return core.AuthorizeResult{}, core.ErrAuthorization
		},
	}

	_, err := NewAuthorizeQuery(reader).Query(context.Background(), AuthorizeMessage{
		Query: core.InstallQuery{TeamID: "T1"},
	})
	if !errors.Is(err, core.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestGetInstallationQuery_DelegatesToReader(t *testing.T) {
	called := false
	reader := stubInstallationReader{
		fetchFn: func(_ context.Context, query core.InstallQuery) (core.Installation, error) {
			called = true
			if query.EnterpriseID != "E1" || !query.IsEnterpriseInstall {
				t.Fatalf("unexpected installation query: %#v", query)
			}
			return core.Installation{
				Enterprise:          &core.EnterpriseRef{ID: "E1"},
				IsEnterpriseInstall: true,
			}, nil
		},
	}

	installation, err := NewGetInstallationQuery(reader).Query(context.Background(), GetInstallationMessage{
		Query: core.InstallQuery{EnterpriseID: "E1", IsEnterpriseInstall: true},
	})
	if err != nil {
		t.Fatalf("get installation query: %v", err)
	}
	if !called {
		t.Fatalf("expected installation reader invocation")
	}
	if installation.Enterprise == nil || installation.Enterprise.ID != "E1" {
		t.Fatalf("unexpected installation: %#v", installation)
	}
}

func TestQueries_NilReaderReturnsRichError(t *testing.T) {
	var authorize *AuthorizeQuery
	_, err := authorize.Query(context.Background(), AuthorizeMessage{})
	if err == nil {
		t.Fatalf("expected dependency error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}

	var get *GetInstallationQuery
	if _, err := get.Query(context.Background(), GetInstallationMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestQueryMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "authorize valid",
			msg:     AuthorizeMessage{Query: core.InstallQuery{TeamID: "T1"}},
			wantErr: false,
		},
		{
			name:    "authorize enterprise valid",
			msg:     AuthorizeMessage{Query: core.InstallQuery{EnterpriseID: "E1"}},
			wantErr: false,
		},
		{
			name:    "authorize missing workspace",
			msg:     AuthorizeMessage{},
			wantErr: true,
		},
		{
			name:    "get installation valid",
			msg:     GetInstallationMessage{Query: core.InstallQuery{TeamID: "T1", UserID: "U1"}},
			wantErr: false,
		},
		{
			name:    "get installation missing workspace",
			msg:     GetInstallationMessage{Query: core.InstallQuery{UserID: "U1"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
