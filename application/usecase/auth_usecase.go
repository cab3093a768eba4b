package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jobtrack/jobtrack/application/port/inbound"
	"github.com/jobtrack/jobtrack/application/port/outbound"
	"github.com/jobtrack/jobtrack/domain/apperror"
	"github.com/jobtrack/jobtrack/domain/entity"
	"github.com/jobtrack/jobtrack/domain/valueobject"
	"github.com/jobtrack/jobtrack/infrastructure/service/logger"
)

const passwordResetKeyPrefix = "passwordReset:"

// AuthUseCase orchestrates the account lifecycle: signup gated on email
// verification, signin, signout, refresh token rotation and the password
// flows. All token issuance funnels through IssuePairFor, including the
// federated login callback.
type AuthUseCase struct {
	userRepository    outbound.UserRepository
	registry          *RefreshTokenRegistry
	codec             outbound.TokenCodec
	passwordService   outbound.PasswordService
	emailVerification inbound.EmailVerificationUseCase
	store             outbound.KeyValueStore
	mailer            outbound.Mailer
	logger            logger.Logger
	resetTokenTTL     time.Duration
	resetBaseURL      string
}

func NewAuthUseCase(
	userRepo outbound.UserRepository,
	registry *RefreshTokenRegistry,
	codec outbound.TokenCodec,
	passwordService outbound.PasswordService,
	emailVerification inbound.EmailVerificationUseCase,
	store outbound.KeyValueStore,
	mailer outbound.Mailer,
	log logger.Logger,
	resetTokenTTL time.Duration,
	resetBaseURL string,
) inbound.AuthUseCase {
	return &AuthUseCase{
		userRepository:    userRepo,
		registry:          registry,
		codec:             codec,
		passwordService:   passwordService,
		emailVerification: emailVerification,
		store:             store,
		mailer:            mailer,
		logger:            log,
		resetTokenTTL:     resetTokenTTL,
		resetBaseURL:      resetBaseURL,
	}
}

func (uc *AuthUseCase) SignUp(ctx context.Context, req inbound.SignupRequest) (*valueobject.TokenPair, error) {
	exists, err := uc.userRepository.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.Internal("failed to check existing account", err)
	}
	if exists {
		return nil, apperror.DuplicateUser()
	}

	verified, err := uc.emailVerification.IsEmailVerified(ctx, req.Email)
	if err != nil {
		return nil, apperror.Internal("failed to check email verification", err)
	}
	if !verified {
		logger.LogAuthEvent(ctx, uc.logger, "signup_email_not_verified", req.Email, false, nil)
		return nil, apperror.EmailNotVerified()
	}

	hashed, err := uc.passwordService.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	user, err := uc.userRepository.Create(ctx, entity.NewUser(req.Email, hashed, entity.RoleUser, entity.AccountLocal))
	if err != nil {
		return nil, apperror.Internal("failed to create user", err)
	}

	pair, err := uc.IssuePairFor(ctx, valueobject.PrincipalFromUser(user))
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "signup_successful", user.Email, true, map[string]interface{}{
		"user_id": user.ID,
	})
	return pair, nil
}

func (uc *AuthUseCase) SignIn(ctx context.Context, req inbound.SigninRequest) (*valueobject.TokenPair, error) {
	user, err := uc.userRepository.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogAuthEvent(ctx, uc.logger, "signin_user_not_found", req.Email, false, nil)
			return nil, apperror.UserNotFound()
		}
		return nil, apperror.Internal("failed to find user", err)
	}

	valid, err := uc.passwordService.VerifyPassword(req.Password, user.Password)
	if err != nil {
		return nil, apperror.Internal("password verification failed", err)
	}
	if !valid {
		logger.LogAuthEvent(ctx, uc.logger, "signin_invalid_password", req.Email, false, nil)
		return nil, apperror.InvalidCredentials()
	}

	pair, err := uc.IssuePairFor(ctx, valueobject.PrincipalFromUser(user))
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "signin_successful", user.Email, true, map[string]interface{}{
		"user_id": user.ID,
	})
	return pair, nil
}

// IssuePairFor issues a fresh access/refresh pair for the principal and
// stores the refresh token as the principal's only live one. A fresh
// login therefore invalidates any earlier session: one active refresh
// token per account, by design of the registry's overwrite semantics.
func (uc *AuthUseCase) IssuePairFor(ctx context.Context, principal valueobject.Principal) (*valueobject.TokenPair, error) {
	accessToken, err := uc.codec.Issue(principal, outbound.TokenKindAccess)
	if err != nil {
		return nil, apperror.Internal("failed to issue access token", err)
	}

	refreshToken, err := uc.codec.Issue(principal, outbound.TokenKindRefresh)
	if err != nil {
		return nil, apperror.Internal("failed to issue refresh token", err)
	}

	if err := uc.registry.Save(ctx, principal.Email, refreshToken); err != nil {
		return nil, apperror.Internal("failed to store refresh token", err)
	}

	return valueobject.NewTokenPair(accessToken, refreshToken), nil
}

func (uc *AuthUseCase) SignOut(ctx context.Context, refreshToken string) error {
	claims, err := uc.codec.Decode(refreshToken)
	if err != nil {
		return err
	}

	if claims.Kind != outbound.TokenKindRefresh {
		return apperror.TokenTypeMismatch()
	}

	exists, err := uc.registry.Exists(ctx, claims.Email)
	if err != nil {
		return apperror.Internal("failed to check refresh token record", err)
	}
	if !exists {
		// Already signed out.
		return apperror.InvalidToken("no active session for this token")
	}

	if err := uc.registry.Delete(ctx, claims.Email); err != nil {
		return apperror.Internal("failed to delete refresh token record", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "signout_successful", claims.Email, true, nil)
	return nil
}

func (uc *AuthUseCase) Reissue(ctx context.Context, refreshToken string) (*valueobject.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperror.InvalidToken("refresh token is required")
	}

	claims, err := uc.codec.Decode(refreshToken)
	if err != nil {
		return nil, err
	}

	if claims.Kind != outbound.TokenKindRefresh {
		return nil, apperror.TokenTypeMismatch()
	}

	stored, err := uc.registry.Get(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, outbound.ErrKeyNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "reissue_token_not_found", "MEDIUM", map[string]interface{}{
				"email": claims.Email,
			})
			return nil, apperror.TokenNotFound()
		}
		return nil, apperror.Internal("failed to read refresh token record", err)
	}

	// A presented token that differs from the record is a replay of a
	// token already rotated away, possibly stolen. Fail closed and leave
	// the stored token untouched so the legitimate holder keeps working.
	if stored != refreshToken {
		logger.LogSecurityEvent(ctx, uc.logger, "reissue_token_mismatch", "HIGH", map[string]interface{}{
			"email": claims.Email,
		})
		return nil, apperror.TokenMismatch()
	}

	// Rotation is delete-then-save so a concurrent reissue cannot
	// resurrect the value being replaced.
	if err := uc.registry.Delete(ctx, claims.Email); err != nil {
		return nil, apperror.Internal("failed to rotate refresh token", err)
	}

	pair, err := uc.IssuePairFor(ctx, claims.Principal())
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "reissue_successful", claims.Email, true, nil)
	return pair, nil
}

func (uc *AuthUseCase) DeleteAccount(ctx context.Context, principal valueobject.Principal) error {
	user, err := uc.userRepository.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.UserNotFound()
		}
		return apperror.Internal("failed to find user", err)
	}

	if err := uc.registry.Delete(ctx, principal.Email); err != nil {
		return apperror.Internal("failed to delete refresh token record", err)
	}

	if err := uc.userRepository.Delete(ctx, user.ID); err != nil {
		return apperror.Internal("failed to delete user", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "account_deleted", principal.Email, true, nil)
	return nil
}

func (uc *AuthUseCase) CheckPassword(ctx context.Context, principal valueobject.Principal, password string) error {
	user, err := uc.userRepository.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.UserNotFound()
		}
		return apperror.Internal("failed to find user", err)
	}

	valid, err := uc.passwordService.VerifyPassword(password, user.Password)
	if err != nil {
		return apperror.Internal("password verification failed", err)
	}
	if !valid {
		return apperror.InvalidCredentials()
	}

	return nil
}

// UpdatePassword changes the password of an authenticated user and
// revokes the live refresh token, forcing re-authentication everywhere.
func (uc *AuthUseCase) UpdatePassword(ctx context.Context, principal valueobject.Principal, newPassword string) error {
	user, err := uc.userRepository.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.UserNotFound()
		}
		return apperror.Internal("failed to find user", err)
	}

	hashed, err := uc.passwordService.HashPassword(newPassword)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}

	if err := uc.userRepository.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return apperror.Internal("failed to update password", err)
	}

	if err := uc.registry.Delete(ctx, principal.Email); err != nil {
		return apperror.Internal("failed to delete refresh token record", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_updated", principal.Email, true, nil)
	return nil
}

func (uc *AuthUseCase) CheckEmailDuplicate(ctx context.Context, email string) error {
	exists, err := uc.userRepository.ExistsByEmail(ctx, email)
	if err != nil {
		return apperror.Internal("failed to check existing account", err)
	}
	if exists {
		return apperror.DuplicateUser()
	}
	return nil
}

// RequestPasswordReset mails a single-use reset link. The opaque token
// maps to the user id in the key-value store and ages out on its own.
func (uc *AuthUseCase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := uc.userRepository.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.UserNotFound()
		}
		return apperror.Internal("failed to find user", err)
	}

	resetToken := uuid.New().String()
	if err := uc.store.Set(ctx, passwordResetKey(resetToken), fmt.Sprintf("%d", user.ID), uc.resetTokenTTL); err != nil {
		return apperror.Internal("failed to store reset token", err)
	}

	resetURL := uc.resetBaseURL + "/reset-password?token=" + resetToken
	body := "Open the link below to reset your password:\n" + resetURL
	if err := uc.mailer.Send(ctx, email, "Password reset", body); err != nil {
		uc.logger.Error(ctx, "failed to send reset mail", err, map[string]interface{}{
			"email": email,
		})
		return apperror.Internal("failed to send reset mail", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_reset_requested", email, true, nil)
	return nil
}

// ResetPasswordWithToken consumes a mailed reset token exactly once.
func (uc *AuthUseCase) ResetPasswordWithToken(ctx context.Context, resetToken, newPassword string) error {
	userIDValue, err := uc.store.Get(ctx, passwordResetKey(resetToken))
	if err != nil {
		if errors.Is(err, outbound.ErrKeyNotFound) {
			return apperror.InvalidToken("invalid or expired reset token")
		}
		return apperror.Internal("failed to read reset token", err)
	}

	var userID int64
	if _, err := fmt.Sscanf(userIDValue, "%d", &userID); err != nil {
		return apperror.Internal("malformed reset token record", err)
	}

	user, err := uc.userRepository.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.UserNotFound()
		}
		return apperror.Internal("failed to find user", err)
	}

	hashed, err := uc.passwordService.HashPassword(newPassword)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}

	if err := uc.userRepository.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return apperror.Internal("failed to update password", err)
	}

	if err := uc.store.Delete(ctx, passwordResetKey(resetToken)); err != nil {
		return apperror.Internal("failed to consume reset token", err)
	}

	if err := uc.registry.Delete(ctx, user.Email); err != nil {
		return apperror.Internal("failed to delete refresh token record", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_reset_completed", user.Email, true, nil)
	return nil
}

// ResetPasswordWithEmail resets the password of a user who proved control
// of the address through the verification-code flow. Federated accounts
// have no local password to reset.
func (uc *AuthUseCase) ResetPasswordWithEmail(ctx context.Context, email, newPassword string) error {
	verified, err := uc.emailVerification.IsEmailVerified(ctx, email)
	if err != nil {
		return apperror.Internal("failed to check email verification", err)
	}
	if !verified {
		return apperror.EmailNotVerified()
	}

	user, err := uc.userRepository.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.UserNotFound()
		}
		return apperror.Internal("failed to find user", err)
	}

	if user.AccountKind != entity.AccountLocal {
		return apperror.PasswordChangeNotAllowed()
	}

	hashed, err := uc.passwordService.HashPassword(newPassword)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}

	if err := uc.userRepository.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return apperror.Internal("failed to update password", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_reset_completed", email, true, nil)
	return nil
}

func passwordResetKey(token string) string {
	return passwordResetKeyPrefix + token
}
