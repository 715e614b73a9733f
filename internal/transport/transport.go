// Package transport builds the HTTP client used to reach the siteverify API.
package transport

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// New returns a client whose dial and TLS handshake are bounded by
// connectTimeout and whose whole round trip is bounded by timeout.
func New(connectTimeout, timeout time.Duration) *http.Client {
	t := cleanhttp.DefaultPooledTransport()
	t.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = connectTimeout
	return &http.Client{
		Transport: t,
		Timeout:   timeout,
	}
}
