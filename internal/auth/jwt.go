// Package auth provides the credential primitives of the catalog: signed
// session tokens, password hashing, the request authentication middleware and
// the optional GitHub sign-in provider.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /signup stores a bcrypt hash of the password.
//  2. POST /login verifies the password and returns a signed JWT.
//  3. Every protected request carries "Authorization: Bearer <jwt>".
//     RequireAuth validates the token, asks the resolver for the live user
//     record and puts it in the request context.
//
// WHY JWT?
// JWT (JSON Web Token) is stateless: everything needed to trust the caller
// (who they are, when the token expires) is inside the signed token, so
// validation needs only the secret.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"id":"...","email":"...","ver":0,"exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// REVOCATION:
// A pure JWT cannot be taken back before it expires. The "ver" claim carries
// the user's token version at issue time; a password reset bumps the stored
// version, and identity resolution rejects tokens whose "ver" is stale.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sakif/book-catalog/internal/model"
)

const (
	issuer = "book-catalog"

	// DefaultTokenTTL is how long an issued token stays valid.
	DefaultTokenTTL = 4 * time.Hour
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations, so it is process-wide config.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A zero ttl means DefaultTokenTTL.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is the JWT payload. The identity fields are a snapshot of the user
// at issue time; Version is compared with the live record on every request.
//
// jwt.RegisteredClaims adds the standard fields: sub, iss, iat, exp.
type Claims struct {
	UserID  string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// Generate signs a token for user with the configured lifetime and returns
// it together with its expiry time.
func (s *TokenService) Generate(user *model.User) (string, time.Time, error) {
	return s.GenerateWithDuration(user, s.ttl)
}

// GenerateWithDuration is Generate with a custom lifetime. Tests use a
// negative duration to mint already-expired tokens.
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric: the same key signs and
// verifies, which is all a single service needs.
func (s *TokenService) GenerateWithDuration(user *model.User, d time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(d)

	c := Claims{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Version: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, expiresAt.Truncate(time.Second), nil
}

// Validate parses and verifies a JWT string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "book-catalog" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: bad claims", ErrTokenInvalid)
	}
	if c.UserID == "" || c.UserID != c.Subject {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return c, nil
}
