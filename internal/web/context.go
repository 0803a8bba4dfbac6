package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sheetseal/internal/core"
)

// withRequestMetadata adds the client IP and User-Agent recorded on
// conversion rows. RemoteAddr is already resolved by TrustedRealIP.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.WithClient(ctx, core.Client{IP: clientIP(r), UserAgent: r.UserAgent()})
}
