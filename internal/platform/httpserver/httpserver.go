package httpserver

import (
	"net/http"
	"time"

	"solarintake/internal/platform/config"
)

// New builds the HTTP server. The write timeout leaves headroom over the
// per-request timeout so handlers can still write their error response.
func New(cfg config.Server, handler http.Handler) *http.Server {
	writeTimeout := 45 * time.Second
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + 15*time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       90 * time.Second,
	}
}
