// Package tenant identifies the business owner a request acts for and the
// database that holds their data.
package tenant

import (
	"context"
	"errors"
	"strings"
)

// DefaultPrefix is prepended to the sanitized username to name a tenant database.
const DefaultPrefix = "jpcobrancas_"

// MySQL caps identifiers at 64 characters.
const maxDatabaseName = 64

var ErrInvalidUsername = errors.New("username has no usable characters")

type Tenant struct {
	Username string
	Database string
}

type contextKey struct{}

// New builds the tenant for username, deriving its database name.
func New(prefix, username string) (Tenant, error) {
	name, err := DatabaseName(prefix, username)
	if err != nil {
		return Tenant{}, err
	}
	return Tenant{Username: username, Database: name}, nil
}

// DatabaseName sanitizes username into a database identifier: lower case,
// anything outside [a-z0-9_] becomes '_', and the result is truncated to fit
// MySQL's limit.
func DatabaseName(prefix, username string) (string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	var b strings.Builder
	meaningful := false
	for _, r := range strings.ToLower(strings.TrimSpace(username)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			meaningful = true
		default:
			b.WriteByte('_')
		}
	}
	if !meaningful {
		return "", ErrInvalidUsername
	}

	name := prefix + b.String()
	if len(name) > maxDatabaseName {
		name = name[:maxDatabaseName]
	}
	return name, nil
}

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant stored in ctx, if any.
func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(contextKey{}).(Tenant)
	if !ok || t.Database == "" {
		return Tenant{}, false
	}
	return t, true
}
