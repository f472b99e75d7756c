// Package proxy forwards requests that survive the routing pipeline to the
// dashboard backend.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/crewhq/gateway/pkg/logger"
)

// ReverseProxy forwards requests to the backend, preserving the effective
// (possibly rewritten) path. The client never learns the internal URL.
type ReverseProxy struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// New creates a proxy for the given backend base URL.
func New(baseURL string, timeout time.Duration) (*ReverseProxy, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = otelhttp.NewTransport(&http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	})
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WarnCtx(r.Context(), "backend proxy error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
	}

	return &ReverseProxy{target: target, proxy: p}, nil
}

// Handler returns a gin handler that forwards the request.
func (p *ReverseProxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p.proxy.ServeHTTP(c.Writer, c.Request)
	}
}
