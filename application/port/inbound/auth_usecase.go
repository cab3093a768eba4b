package inbound

import (
	"context"

	"github.com/jobtrack/jobtrack/domain/valueobject"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUseCase composes the token codec, the refresh token registry and
// the email verification flow into the account lifecycle operations.
type AuthUseCase interface {
	SignUp(ctx context.Context, req SignupRequest) (*valueobject.TokenPair, error)
	SignIn(ctx context.Context, req SigninRequest) (*valueobject.TokenPair, error)
	// SignOut invalidates the server-side refresh record for the token's
	// principal. The presented token must be a live refresh token.
	SignOut(ctx context.Context, refreshToken string) error
	// Reissue rotates the refresh token: the presented token must match the
	// stored record byte for byte, and a brand-new pair replaces it.
	Reissue(ctx context.Context, refreshToken string) (*valueobject.TokenPair, error)
	// IssuePairFor is the single issuance path shared by local signin,
	// signup and federated login.
	IssuePairFor(ctx context.Context, principal valueobject.Principal) (*valueobject.TokenPair, error)

	DeleteAccount(ctx context.Context, principal valueobject.Principal) error
	CheckPassword(ctx context.Context, principal valueobject.Principal, password string) error
	UpdatePassword(ctx context.Context, principal valueobject.Principal, newPassword string) error
	CheckEmailDuplicate(ctx context.Context, email string) error

	RequestPasswordReset(ctx context.Context, email string) error
	ResetPasswordWithToken(ctx context.Context, token, newPassword string) error
	ResetPasswordWithEmail(ctx context.Context, email, newPassword string) error
}
