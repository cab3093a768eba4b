package inbound

import "context"

// EmailVerificationUseCase issues and validates the short-lived,
// single-use codes that prove control of an email address before signup.
type EmailVerificationUseCase interface {
	SendVerificationCode(ctx context.Context, email string) error
	// VerifyCode consumes the stored code: a second call with the same
	// correct code fails because the code is deleted on first success.
	VerifyCode(ctx context.Context, email, code string) error
	IsEmailVerified(ctx context.Context, email string) (bool, error)
}
