package security

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hilthontt/kindred/domain/model"
	"github.com/hilthontt/kindred/infrastructure/config"
)

var (
	ErrTokenRequired = errors.New("Token required")
	ErrInvalidToken  = errors.New("Invalid token")
)

const (
	tokenQueryParam  = "token"
	bearerProtocol   = "bearer"
	authHeaderPrefix = "Bearer "
)

// Claims is the payload issued by the HTTP side. The subject id travels in
// "id"; older tokens only carry it as a numeric "sub".
type Claims struct {
	ID   int64  `json:"id,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewTokenVerifier(cfg config.JWTConfig) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}
}

// Verify validates a raw token and returns the identity it names.
func (v *TokenVerifier) Verify(raw string) (model.Identity, error) {
	if raw == "" {
		return model.Identity{}, ErrTokenRequired
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	id := claims.ID
	if id == 0 && claims.Subject != "" {
		id, err = strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return model.Identity{}, ErrInvalidToken
		}
	}
	if id <= 0 {
		return model.Identity{}, ErrInvalidToken
	}

	kind := model.KindUser
	if claims.Role != "" {
		kind = model.IdentityKind(claims.Role)
	}
	if !kind.Valid() {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{ID: id, Kind: kind}, nil
}

// VerifyRequest pulls the credential out of the handshake request and verifies it.
func (v *TokenVerifier) VerifyRequest(r *http.Request) (model.Identity, error) {
	return v.Verify(TokenFromRequest(r))
}

// TokenFromRequest looks at handshake auth metadata first (Authorization header,
// then the "bearer, <token>" subprotocol pair browsers use) and falls back to
// the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, authHeaderPrefix) {
		if t := strings.TrimSpace(strings.TrimPrefix(h, authHeaderPrefix)); t != "" {
			return t
		}
	}

	if t := tokenFromSubprotocols(r); t != "" {
		return t
	}

	return strings.TrimSpace(r.URL.Query().Get(tokenQueryParam))
}

func tokenFromSubprotocols(r *http.Request) string {
	var protocols []string
	for _, h := range r.Header.Values("Sec-WebSocket-Protocol") {
		for p := range strings.SplitSeq(h, ",") {
			protocols = append(protocols, strings.TrimSpace(p))
		}
	}

	for i := 0; i+1 < len(protocols); i++ {
		if strings.EqualFold(protocols[i], bearerProtocol) {
			return protocols[i+1]
		}
	}
	return ""
}

// BearerSubprotocol is the protocol the server echoes back when the client
// authenticated through Sec-WebSocket-Protocol.
func BearerSubprotocol(r *http.Request) []string {
	if tokenFromSubprotocols(r) == "" {
		return nil
	}
	return []string{bearerProtocol}
}

// IssueToken signs a token the same way the HTTP side does. The realtime
// service never hands these out; tooling and tests use it.
func IssueToken(cfg config.JWTConfig, identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:   identity.ID,
		Role: string(identity.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
