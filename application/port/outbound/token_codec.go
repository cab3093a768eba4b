package outbound

import (
	"time"

	"github.com/jobtrack/jobtrack/domain/entity"
	"github.com/jobtrack/jobtrack/domain/valueobject"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "ACCESS"
	TokenKindRefresh TokenKind = "REFRESH"
)

// TokenClaims is the decoded payload of a signed token.
type TokenClaims struct {
	UserID      int64
	Email       string
	Role        entity.Role
	AccountKind entity.AccountKind
	Kind        TokenKind
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

func (c *TokenClaims) Principal() valueobject.Principal {
	return valueobject.Principal{
		UserID:      c.UserID,
		Email:       c.Email,
		Role:        c.Role,
		AccountKind: c.AccountKind,
	}
}

// TokenCodec issues and verifies signed, expiring tokens. Issued access
// tokens carry the "Bearer " transport prefix; refresh tokens do not.
// Decode verifies the signature before expiry and fails with
// apperror.ExpiredToken or apperror.InvalidToken so callers can react
// differently to the two cases.
type TokenCodec interface {
	Issue(principal valueobject.Principal, kind TokenKind) (string, error)
	Decode(token string) (*TokenClaims, error)
	KindOf(token string) (TokenKind, error)
	SubjectOf(token string) (int64, error)
	EmailOf(token string) (string, error)
}
