package query

import (
	"context"

	"github.com/goliatone/go-install/core"
)

type Authorizer interface {
	Authorize(ctx context.Context, query core.InstallQuery) (core.AuthorizeResult, error)
}

type InstallationReader interface {
	FetchInstallation(ctx context.Context, query core.InstallQuery) (core.Installation, error)
}

type AuthorizeQuery struct {
	reader Authorizer
}

func NewAuthorizeQuery(reader Authorizer) *AuthorizeQuery {
	return &AuthorizeQuery{reader: reader}
}

func (q *AuthorizeQuery) Query(ctx context.Context, msg AuthorizeMessage) (core.AuthorizeResult, error) {
	if q == nil || q.reader == nil {
		return core.AuthorizeResult{}, queryDependencyError("query: authorizer is required")
	}
	return q.reader.Authorize(ctx, msg.Query)
}

type GetInstallationQuery struct {
	reader InstallationReader
}

func NewGetInstallationQuery(reader InstallationReader) *GetInstallationQuery {
	return &GetInstallationQuery{reader: reader}
}

func (q *GetInstallationQuery) Query(ctx context.Context, msg GetInstallationMessage) (core.Installation, error) {
	if q == nil || q.reader == nil {
		return core.Installation{}, queryDependencyError("query: installation reader is required")
	}
	return q.reader.FetchInstallation(ctx, msg.Query)
}
