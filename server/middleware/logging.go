package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/edgecam/logger"
)

// probePaths are polled by orchestrators every few seconds and would drown
// out the admin traffic worth reading.
var probePaths = map[string]struct{}{"health": {}, "live": {}, "ready": {}}

func isProbe(path string) bool {
	path = strings.TrimPrefix(path, "/api")
	_, ok := probePaths[strings.TrimPrefix(path, "/")]
	return ok
}

// RequestLogger logs one line per request once the handler returns.
// Server errors log at error level, client errors at warn and the rest at
// debug. Upgraded stream connections are logged when the client leaves.
func RequestLogger(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.Get("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				logger.FieldStatus:   sw.status,
				logger.FieldDuration: time.Since(start).Milliseconds(),
				logger.FieldRemote:   r.RemoteAddr,
			}
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields[logger.FieldRequestID] = id
			}
			if sw.hijacked {
				fields["upgraded"] = true
			}

			switch {
			case sw.status >= http.StatusInternalServerError:
				log.Error("request failed", fields)
			case sw.status >= http.StatusBadRequest:
				log.Warn("request rejected", fields)
			default:
				log.Debug("request served", fields)
			}
		})
	}
}
