package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hilthontt/kindred/infrastructure/logger"
	"go.uber.org/zap"
)

// OriginPolicy decides which browser origins may open a connection.
// Requests without an Origin header come from native clients and are allowed.
type OriginPolicy struct {
	allowed  map[string]struct{}
	allowAll bool
	logger   *logger.Logger
}

func NewOriginPolicy(origins []string, log *logger.Logger) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}), logger: log}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch trimmed {
		case "":
			continue
		case "*":
			p.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("ignoring invalid origin in configuration", zap.String("origin", origin))
			continue
		}
		p.allowed[normalized] = struct{}{}
	}

	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, exists := p.allowed[normalized]
	return exists
}

// CheckOrigin has the shape gorilla's Upgrader expects.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if p.Allowed(origin) {
		return true
	}
	p.logger.Warn("blocked websocket connection from disallowed origin", zap.String("origin", origin))
	return false
}
