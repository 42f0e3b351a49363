package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mssola/useragent"

	"cardshare/internal/platform/metrics"
)

// Client classes reported by ClientClass.
const (
	ClientBot     = "bot"
	ClientMobile  = "mobile"
	ClientDesktop = "desktop"
	ClientUnknown = "unknown"
)

type clientInfo struct {
	class   string
	browser string
	os      string
}

func parseClient(userAgent string) clientInfo {
	if userAgent == "" {
		return clientInfo{class: ClientUnknown}
	}
	ua := useragent.New(userAgent)
	name, _ := ua.Browser()
	info := clientInfo{browser: name, os: ua.OS()}
	switch {
	case ua.Bot():
		info.class = ClientBot
	case ua.Mobile():
		info.class = ClientMobile
	case name == "":
		info.class = ClientUnknown
	default:
		info.class = ClientDesktop
	}
	return info
}

// ClientClass buckets a User-Agent header into a low-cardinality label.
func ClientClass(userAgent string) string {
	return parseClient(userAgent).class
}

// Logger logs one line per request and records its latency. Mount it after
// chi's RealIP so remote_addr is the forwarded client address. The route label
// is the chi pattern, not the raw path, so ids do not explode cardinality.
func Logger(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			client := parseClient(r.UserAgent())

			m.ObserveHTTP(r.Method, route, strconv.Itoa(status), elapsed)
			m.IncHTTPClient(client.class)

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"client", client.class,
				"browser", client.browser,
				"os", client.os,
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
