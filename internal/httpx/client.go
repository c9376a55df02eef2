package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the network identity of the requester.
// With trustProxy set, the first X-Forwarded-For hop wins over RemoteAddr;
// only enable it behind a proxy that overwrites the header.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
