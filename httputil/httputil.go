package httputil

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kjk/blobseq/log"
)

// GetBestRemoteAddress returns IP address of the request even for proxied requests
func GetBestRemoteAddress(r *http.Request) string {
	h := r.Header
	potentials := []string{h.Get("CF-Connecting-IP"), h.Get("X-Real-Ip"), h.Get("X-Forwarded-For")}
	for _, v := range potentials {
		// sometimes they are stored as "ip1, ip2, ip3" with ip1 being the best
		parts := strings.Split(v, ",")
		res := strings.TrimSpace(parts[0])
		if res != "" {
			return res
		}
	}
	// "[::1]:58292" => "::1"
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// some headers and not worth logging
var hdrsToNotLog = map[string]bool{
	"connection":                true,
	"sec-ch-ua-mobile":          true,
	"sec-fetch-dest":            true,
	"sec-ch-ua-platform":        true,
	"dnt":                       true,
	"upgrade-insecure-requests": true,
	"sec-fetch-site":            true,
	"sec-fetch-mode":            true,
	"sec-fetch-user":            true,
	"if-modified-since":         true,
	"accept-encoding":           true,
	"cf-ray":                    true,
	"cf-visitor":                true,
	"x-request-start":           true,
	"cdn-loop":                  true,
	"x-forwarded-proto":         true,
}

func shouldLogHeader(s string) bool {
	return !hdrsToNotLog[strings.ToLower(s)]
}

// LogReq records a served request as "http" event
func LogReq(r *http.Request, code int, size int64, dur time.Duration) {
	vals := []any{
		"req", r.Method + " " + r.RequestURI,
		"code", code,
		"size", size,
		"ip", GetBestRemoteAddress(r),
		"durmicro", dur.Microseconds(),
	}
	for k, v := range r.Header {
		if shouldLogHeader(k) && len(v) > 0 && v[0] != "" {
			vals = append(vals, k, v[0])
		}
	}
	log.Event("http", vals...)
	log.Verbosef("%s %s %d %d %s\n", r.Method, r.RequestURI, code, size, dur)
}

// LogRequests wraps h so that every request is logged with LogReq
func LogRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeStart := time.Now()
		cw := NewCapturingResponseWriter(w)
		h.ServeHTTP(cw, r)
		LogReq(r, cw.StatusCode, cw.Size, time.Since(timeStart))
	})
}
