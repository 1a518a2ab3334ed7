package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Claims carried by tokens from the external auth service.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens. Tokens are issued elsewhere; this service only checks them.
type Verifier struct {
	secret []byte
	issuer string
	logger *slog.Logger
	now    func() time.Time
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret, issuer string, logger *slog.Logger) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, logger: logger, now: time.Now}
}

// Parse validates raw and returns its principal.
func (v *Verifier) Parse(raw string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, fmt.Errorf("%w: subject must be a user id", shared.ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Role) == "" {
		return Principal{}, fmt.Errorf("%w: role claim missing", shared.ErrUnauthorized)
	}
	return Principal{UserID: id, Role: strings.ToLower(claims.Role), Name: claims.Name}, nil
}

// Issue signs a token for p. Used by tests and local tooling.
func (v *Verifier) Issue(p Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Role: p.Role,
		Name: p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		principal, err := v.Parse(strings.TrimSpace(raw))
		if err != nil {
			if v.logger != nil && !errors.Is(err, jwt.ErrTokenExpired) {
				v.logger.Warn("reject bearer token", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
