package valueobject

import (
	"github.com/jobtrack/jobtrack/domain/entity"
)

// Principal is the authenticated identity carried inside tokens and
// attached to the request context after the session gate accepts a
// bearer token. It is never persisted by this service.
type Principal struct {
	UserID      int64              `json:"user_id"`
	Email       string             `json:"email"`
	Role        entity.Role        `json:"role"`
	AccountKind entity.AccountKind `json:"account_kind"`
}

func PrincipalFromUser(user *entity.User) Principal {
	return Principal{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		AccountKind: user.AccountKind,
	}
}
