package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"SMProject/logger"

	"go.uber.org/zap"
)

// OriginPolicy decides which browser origins may open a websocket.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy accepts scheme://host entries and "*". An empty list
// allows everything.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{})}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			p.allowAll = true
		default:
			n, ok := normalizeOrigin(o)
			if !ok {
				logger.Warn("ignoring invalid origin", zap.String("origin", o))
				continue
			}
			p.allowed[n] = struct{}{}
		}
	}
	if len(p.allowed) == 0 {
		p.allowAll = true
	}
	return p
}

// CheckOrigin has the websocket.Upgrader signature. Requests without an
// Origin header are not from a browser and pass.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.allowAll {
		return true
	}
	n, ok := normalizeOrigin(origin)
	if ok {
		if _, ok = p.allowed[n]; ok {
			return true
		}
	}
	logger.Info("blocked websocket from disallowed origin", zap.String("origin", origin))
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
