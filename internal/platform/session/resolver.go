// Package session resolves the shopping session identity carried on each request.
//
// Clients send an opaque session identifier in a request header. When the
// header is absent or blank the resolver mints a fresh identifier so that
// anonymous visitors still get a working cart. The resolved identifier is
// echoed back on the response so clients can persist it.
package session

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stylenest/api/internal/platform/requestctx"
)

// DefaultHeader is the canonical session header name.
const DefaultHeader = "X-Session-ID"

const maxSessionIDLength = 128

// Resolver extracts or mints session identifiers for incoming requests.
type Resolver struct {
	header string
	mint   func() string
}

// ResolverOption customises Resolver construction.
type ResolverOption func(*Resolver)

// WithMinter overrides the identifier generator, primarily for tests.
func WithMinter(mint func() string) ResolverOption {
	return func(r *Resolver) {
		if mint != nil {
			r.mint = mint
		}
	}
}

// NewResolver builds a Resolver reading the provided header name.
func NewResolver(header string, opts ...ResolverOption) *Resolver {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	r := &Resolver{
		header: header,
		mint:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Header returns the header name the resolver reads.
func (r *Resolver) Header() string { return r.header }

// Resolve extracts the session identifier from the request, minting a new one
// when the client supplied none.
func (r *Resolver) Resolve(req *http.Request) requestctx.SessionInfo {
	var raw string
	if req != nil {
		raw = strings.TrimSpace(req.Header.Get(r.header))
	}
	if raw == "" {
		return requestctx.SessionInfo{ID: r.mint(), Minted: true}
	}
	if len(raw) > maxSessionIDLength {
		raw = raw[:maxSessionIDLength]
	}
	return requestctx.SessionInfo{ID: raw}
}

// Middleware resolves the session for each request, stores it on the context,
// and echoes the identifier back on the response header.
func (r *Resolver) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			info := r.Resolve(req)
			w.Header().Set(r.header, info.ID)
			ctx := requestctx.WithSession(req.Context(), info)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
