package pushclient

import (
	"log"
	"net/http"
	"net/http/httputil"
	"regexp"
	"strings"
	"time"
)

type MiddlewareNext func(*http.Request) (*http.Response, error)

type Middleware func(*http.Request, MiddlewareNext) (*http.Response, error)

type requestConfig struct {
	BaseURL     string
	InternalKey string
	HTTPClient  *http.Client
	Middlewares []Middleware
}

// RequestOption configures a client or a single call.
type RequestOption func(*requestConfig)

func WithBaseURL(base string) RequestOption {
	return func(r *requestConfig) {
		r.BaseURL = strings.TrimRight(base, "/")
	}
}

func WithInternalKey(key string) RequestOption {
	return func(r *requestConfig) {
		r.InternalKey = key
	}
}

func WithHTTPClient(client *http.Client) RequestOption {
	return func(r *requestConfig) {
		r.HTTPClient = client
	}
}

func WithTimeout(timeout time.Duration) RequestOption {
	return func(r *requestConfig) {
		r.HTTPClient = &http.Client{Timeout: timeout}
	}
}

func WithMiddleware(middlewares ...Middleware) RequestOption {
	return func(r *requestConfig) {
		r.Middlewares = append(r.Middlewares, middlewares...)
	}
}

var sensitiveHeaderRegex = regexp.MustCompile(`(?im)^(Authorization|Cookie|Set-Cookie|X-Internal-Key): .+$`)

func redactSensitiveHeaders(s string) string {
	return sensitiveHeaderRegex.ReplaceAllString(s, "$1: [REDACTED]")
}

func WithDebugLog(logger *log.Logger) RequestOption {
	if logger == nil {
		logger = log.Default()
	}

	return WithMiddleware(func(r *http.Request, next MiddlewareNext) (*http.Response, error) {
		if dump, err := httputil.DumpRequestOut(r, true); err == nil {
			logger.Printf("REQUEST:\n%s\n", redactSensitiveHeaders(string(dump)))
		}

		resp, err := next(r)

		if resp != nil {
			if dump, err := httputil.DumpResponse(resp, true); err == nil {
				logger.Printf("RESPONSE:\n%s\n", redactSensitiveHeaders(string(dump)))
			}
		}

		if err != nil {
			logger.Printf("REQUEST ERROR: %v", err)
		}

		return resp, err
	})
}
