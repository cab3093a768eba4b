package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jobtrack/jobtrack/application/port/inbound"
	"github.com/jobtrack/jobtrack/application/port/outbound"
	"github.com/jobtrack/jobtrack/domain/apperror"
	"github.com/jobtrack/jobtrack/infrastructure/service/logger"
)

const (
	verificationCodeKeyPrefix = "emailVerification:"
	verifiedMarkerKeyPrefix   = "emailVerified:"
	verifiedMarkerValue       = "true"
)

// EmailVerificationUseCase issues six-digit one-time codes, stores them
// under a purpose-scoped key with a TTL, and flips a verified marker on
// first successful check. The code is deleted the moment it verifies, so
// a replay of the same code fails even while the marker is still live.
type EmailVerificationUseCase struct {
	userRepository    outbound.UserRepository
	store             outbound.KeyValueStore
	mailer            outbound.Mailer
	logger            logger.Logger
	codeTTL           time.Duration
	verifiedMarkerTTL time.Duration
}

func NewEmailVerificationUseCase(
	userRepo outbound.UserRepository,
	store outbound.KeyValueStore,
	mailer outbound.Mailer,
	log logger.Logger,
	codeTTL time.Duration,
	verifiedMarkerTTL time.Duration,
) inbound.EmailVerificationUseCase {
	return &EmailVerificationUseCase{
		userRepository:    userRepo,
		store:             store,
		mailer:            mailer,
		logger:            log,
		codeTTL:           codeTTL,
		verifiedMarkerTTL: verifiedMarkerTTL,
	}
}

func (uc *EmailVerificationUseCase) SendVerificationCode(ctx context.Context, email string) error {
	exists, err := uc.userRepository.ExistsByEmail(ctx, email)
	if err != nil {
		return apperror.Internal("failed to check existing account", err)
	}
	if exists {
		return apperror.DuplicateUser()
	}

	code, err := generateNumericCode(6)
	if err != nil {
		return apperror.Internal("failed to generate verification code", err)
	}

	if err := uc.store.Set(ctx, verificationCodeKey(email), code, uc.codeTTL); err != nil {
		return apperror.Internal("failed to store verification code", err)
	}

	body := fmt.Sprintf("Your verification code: %s\nIt expires in %d minutes.", code, int(uc.codeTTL.Minutes()))
	if err := uc.mailer.Send(ctx, email, "Email verification code", body); err != nil {
		uc.logger.Error(ctx, "failed to send verification mail", err, map[string]interface{}{
			"email": email,
		})
		return apperror.Internal("failed to send verification mail", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "verification_code_sent", email, true, nil)
	return nil
}

func (uc *EmailVerificationUseCase) VerifyCode(ctx context.Context, email, code string) error {
	stored, err := uc.store.Get(ctx, verificationCodeKey(email))
	if err != nil {
		if errors.Is(err, outbound.ErrKeyNotFound) {
			logger.LogAuthEvent(ctx, uc.logger, "verification_code_absent", email, false, nil)
			return apperror.InvalidVerificationCode()
		}
		return apperror.Internal("failed to read verification code", err)
	}

	if stored != code {
		logger.LogAuthEvent(ctx, uc.logger, "verification_code_mismatch", email, false, nil)
		return apperror.InvalidVerificationCode()
	}

	// Single use: mark verified first, then destroy the code so the same
	// code can never verify twice.
	if err := uc.store.Set(ctx, verifiedMarkerKey(email), verifiedMarkerValue, uc.verifiedMarkerTTL); err != nil {
		return apperror.Internal("failed to mark email verified", err)
	}
	if err := uc.store.Delete(ctx, verificationCodeKey(email)); err != nil {
		return apperror.Internal("failed to consume verification code", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "email_verified", email, true, nil)
	return nil
}

func (uc *EmailVerificationUseCase) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	return uc.store.Exists(ctx, verifiedMarkerKey(email))
}

func verificationCodeKey(email string) string {
	return verificationCodeKeyPrefix + email
}

func verifiedMarkerKey(email string) string {
	return verifiedMarkerKeyPrefix + email
}

// generateNumericCode returns a fixed-width random decimal string.
func generateNumericCode(width int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(width)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", width, n), nil
}
