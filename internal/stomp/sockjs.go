package stomp

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeEndpoint turns a SockJS base URL into the raw-websocket dial URL
// and the virtual host for the CONNECT frame. The broker side exposes a
// SockJS endpoint (e.g. http://localhost:8082/ws-chat); a plain websocket
// client reaches the same broker through the /websocket sub-path with a
// ws(s) scheme. URLs already in ws(s) form pass through unchanged apart
// from the suffix.
func NormalizeEndpoint(endpoint string) (wsURL, host string, err error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("stomp: parse endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket URL
	default:
		return "", "", fmt.Errorf("stomp: unsupported scheme %q in endpoint %q", u.Scheme, endpoint)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("stomp: endpoint %q has no host", endpoint)
	}
	if !strings.HasSuffix(u.Path, "/websocket") {
		u.Path = strings.TrimRight(u.Path, "/") + "/websocket"
	}
	return u.String(), u.Hostname(), nil
}
