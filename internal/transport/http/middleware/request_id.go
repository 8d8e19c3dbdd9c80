package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	pkgctx "github.com/baechuer/member-portal/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

const maxRequestIDLen = 128

// RequestID propagates or assigns a request id and records the client IP.
// X-Forwarded-For is ignored; use RequestIDBehindProxies behind a proxy.
func RequestID(next http.Handler) http.Handler {
	return RequestIDBehindProxies(0)(next)
}

// RequestIDBehindProxies is RequestID for an API reached through
// trustedHops reverse proxies, each appending one X-Forwarded-For entry.
func RequestIDBehindProxies(trustedHops int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(HeaderXRequestID, reqID)

			ctx := pkgctx.WithRequestID(r.Context(), reqID)
			ctx = pkgctx.WithClientIP(ctx, clientIP(r, trustedHops))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP takes the X-Forwarded-For entry written by the outermost trusted
// proxy. Entries left of it are client-controlled and never used. A chain
// shorter than trustedHops, or a malformed entry, falls back to the peer.
func clientIP(r *http.Request, trustedHops int) string {
	peer := remoteHost(r)
	if trustedHops <= 0 {
		return peer
	}

	var chain []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				chain = append(chain, hop)
			}
		}
	}

	idx := len(chain) - trustedHops
	if idx < 0 || net.ParseIP(chain[idx]) == nil {
		return peer
	}
	return chain[idx]
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
