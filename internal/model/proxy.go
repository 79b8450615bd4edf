// Package model defines shared types for the proxy and the event collector.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest is an inbound request captured for forwarding upstream.
// Body holds the request payload read once from the transport; every
// consumer reuses these bytes.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Cookies  []*http.Cookie
	Body     []byte
}

// Cookie returns the value of the named cookie and whether it was sent.
func (r *ProxyRequest) Cookie(name string) (string, bool) {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
