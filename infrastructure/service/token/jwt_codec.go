package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jobtrack/jobtrack/application/port/outbound"
	"github.com/jobtrack/jobtrack/domain/apperror"
	"github.com/jobtrack/jobtrack/domain/entity"
	"github.com/jobtrack/jobtrack/domain/valueobject"
)

// BearerPrefix is the transport marker prepended to issued access tokens.
const BearerPrefix = "Bearer "

// jwtClaims is the wire shape of a token payload. Timestamps are epoch
// milliseconds; the jwt.Claims accessors convert them so the library's
// validator enforces expiry against them.
type jwtClaims struct {
	Subject     string `json:"sub"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AccountKind string `json:"accountKind"`
	TokenKind   string `json:"tokenType"`
	IssuedAtMs  int64  `json:"iat"`
	ExpiresAtMs int64  `json:"exp"`
}

func (c jwtClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.ExpiresAtMs)), nil
}

func (c jwtClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAtMs)), nil
}

func (c jwtClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c jwtClaims) GetIssuer() (string, error)              { return "", nil }
func (c jwtClaims) GetSubject() (string, error)             { return c.Subject, nil }
func (c jwtClaims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// Config carries the token lifetimes. Lifetimes are policy: changing them
// affects newly issued tokens only, decode checks the embedded expiry and
// never recomputes it.
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// JWTCodec signs and verifies HS256 tokens with a single symmetric key
// loaded once at construction.
type JWTCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTCodec(cfg Config) (*JWTCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: lifetimes must be positive")
	}

	return &JWTCodec{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token for the principal. Access tokens come back
// with the "Bearer " prefix attached, refresh tokens without it.
func (c *JWTCodec) Issue(principal valueobject.Principal, kind outbound.TokenKind) (string, error) {
	now := c.now()

	ttl := c.refreshTTL
	if kind == outbound.TokenKindAccess {
		ttl = c.accessTTL
	}

	claims := jwtClaims{
		Subject:     strconv.FormatInt(principal.UserID, 10),
		Email:       principal.Email,
		Role:        string(principal.Role),
		AccountKind: string(principal.AccountKind),
		TokenKind:   string(kind),
		IssuedAtMs:  now.UnixMilli(),
		ExpiresAtMs: now.Add(ttl).UnixMilli(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	if kind == outbound.TokenKindAccess {
		return BearerPrefix + signed, nil
	}
	return signed, nil
}

// Decode verifies the signature, then the expiry, and returns the claims.
// The two failure modes are distinguishable: an expired token with a good
// signature fails with apperror.ExpiredToken, anything tampered or
// malformed with apperror.InvalidToken.
func (c *JWTCodec) Decode(tokenString string) (*outbound.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.ExpiredToken()
		}
		return nil, apperror.InvalidToken("token signature or structure is invalid")
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, apperror.InvalidToken("")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperror.InvalidToken("token subject is not a user id")
	}

	return &outbound.TokenClaims{
		UserID:      userID,
		Email:       claims.Email,
		Role:        entity.RoleOf(claims.Role),
		AccountKind: entity.AccountKindOf(claims.AccountKind),
		Kind:        outbound.TokenKind(claims.TokenKind),
		IssuedAt:    time.UnixMilli(claims.IssuedAtMs),
		ExpiresAt:   time.UnixMilli(claims.ExpiresAtMs),
	}, nil
}

func (c *JWTCodec) KindOf(tokenString string) (outbound.TokenKind, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Kind, nil
}

func (c *JWTCodec) SubjectOf(tokenString string) (int64, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (c *JWTCodec) EmailOf(tokenString string) (string, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// StripBearer removes the transport prefix from an Authorization header
// value. It fails on anything that does not start with "Bearer ".
func StripBearer(headerValue string) (string, error) {
	if strings.HasPrefix(headerValue, BearerPrefix) && len(headerValue) > len(BearerPrefix) {
		return headerValue[len(BearerPrefix):], nil
	}
	return "", apperror.InvalidToken("authorization header is not a bearer token")
}
