package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/room-booking/internal/application"
)

// RoleAdmin is the role claim value that grants review rights.
const RoleAdmin = "admin"

// Claims is the JWT payload the service accepts.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens and turns them into principals.
type TokenVerifier struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewTokenVerifier returns a verifier for tokens signed with secret.
func NewTokenVerifier(secret []byte) (*TokenVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenVerifier{secret: secret, leeway: 5 * time.Second, now: time.Now}, nil
}

// Verify parses token and returns the principal it names.
func (v *TokenVerifier) Verify(token string) (application.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway), jwt.WithTimeFunc(v.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return application.Principal{}, err
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return application.Principal{}, errors.New("token has no subject")
	}
	return application.Principal{
		UserID:      subject,
		DisplayName: claims.Name,
		IsAdmin:     claims.Role == RoleAdmin,
	}, nil
}

// Issue signs a token for principal valid for ttl.
func (v *TokenVerifier) Issue(principal application.Principal, ttl time.Duration) (string, error) {
	now := v.now()
	role := ""
	if principal.IsAdmin {
		role = RoleAdmin
	}
	claims := Claims{
		Name: principal.DisplayName,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
