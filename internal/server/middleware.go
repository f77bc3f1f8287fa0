package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestLogger logs each request once it completes. It must run after
// middleware.RequestID and middleware.RealIP.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// uploadLimiter caps how many uploads the process accepts per minute.
type uploadLimiter struct {
	limiter *rate.Limiter
}

func newUploadLimiter(perMinute int) *uploadLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &uploadLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

func (l *uploadLimiter) Handler(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter.Allow() {
			zap.L().Warn("upload rate limit exceeded",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
			w.Header().Set("Retry-After", "60")
			writeProblem(w, r, http.StatusTooManyRequests, "Too many uploads, retry in a minute.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// problem is the JSON body of non-redirect error responses.
type problem struct {
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, problem{
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
