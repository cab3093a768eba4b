package usecase

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/jobtrack/application/port/inbound"
	"github.com/jobtrack/jobtrack/application/port/outbound"
	"github.com/jobtrack/jobtrack/domain/apperror"
	"github.com/jobtrack/jobtrack/domain/entity"
	"github.com/jobtrack/jobtrack/domain/valueobject"
)

var resetTokenPattern = regexp.MustCompile(`token=([0-9a-f-]+)`)

type authFixture struct {
	auth     inbound.AuthUseCase
	verify   inbound.EmailVerificationUseCase
	registry *RefreshTokenRegistry
	store    *memoryStore
	repo     *memoryUserRepo
	mailer   *memoryMailer
	codec    outbound.TokenCodec
}

func newAuthFixture() *authFixture {
	store := newMemoryStore()
	repo := newMemoryUserRepo()
	mailer := newMemoryMailer()
	codec := newTestCodec()
	passwords := newTestPasswordService()
	registry := NewRefreshTokenRegistry(store, 14*24*time.Hour)
	verify := NewEmailVerificationUseCase(repo, store, mailer, nopLogger(), 10*time.Minute, 24*time.Hour)
	auth := NewAuthUseCase(repo, registry, codec, passwords, verify, store, mailer, nopLogger(),
		10*time.Minute, "https://app.example.com")
	return &authFixture{
		auth:     auth,
		verify:   verify,
		registry: registry,
		store:    store,
		repo:     repo,
		mailer:   mailer,
		codec:    codec,
	}
}

// signUpVerified walks the full verification and signup flow.
func (f *authFixture) signUpVerified(t *testing.T, email, pass string) *valueobject.TokenPair {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.verify.SendVerificationCode(ctx, email))
	mail, ok := f.mailer.last()
	require.True(t, ok)
	match := codePattern.FindStringSubmatch(mail.body)
	require.Len(t, match, 2)
	require.NoError(t, f.verify.VerifyCode(ctx, email, match[1]))

	pair, err := f.auth.SignUp(ctx, inbound.SignupRequest{Email: email, Password: pass})
	require.NoError(t, err)
	return pair
}

func TestSignUpRequiresVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	_, err := f.auth.SignUp(ctx, inbound.SignupRequest{Email: "a@b.com", Password: "secret123"})
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeEmailNotVerified))

	exists, repoErr := f.repo.ExistsByEmail(ctx, "a@b.com")
	require.NoError(t, repoErr)
	assert.False(t, exists)
}

func TestSignUpIssuesPairAndStoresRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	pair := f.signUpVerified(t, "a@b.com", "secret123")
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored, err := f.registry.Get(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, stored)

	user, err := f.repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.Equal(t, entity.AccountLocal, user.AccountKind)
	assert.NotEqual(t, "secret123", user.Password)
}

func TestSignUpRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUpVerified(t, "a@b.com", "secret123")

	_, err := f.auth.SignUp(ctx, inbound.SignupRequest{Email: "a@b.com", Password: "other1234"})
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeDuplicateUser))
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUpVerified(t, "a@b.com", "secret123")

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.auth.SignIn(ctx, inbound.SigninRequest{Email: "nobody@b.com", Password: "secret123"})
		assert.True(t, apperror.IsCode(err, apperror.ErrCodeUserNotFound))
	})

	t.Run("wrong password", func(t *testing.T) {
		before, err := f.registry.Get(ctx, "a@b.com")
		require.NoError(t, err)

		_, err = f.auth.SignIn(ctx, inbound.SigninRequest{Email: "a@b.com", Password: "wrongpass"})
		assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidCredentials))

		// A failed signin leaves the live session untouched.
		after, err := f.registry.Get(ctx, "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("success", func(t *testing.T) {
		pair, err := f.auth.SignIn(ctx, inbound.SigninRequest{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)

		stored, err := f.registry.Get(ctx, "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, pair.RefreshToken, stored)
	})
}

func TestSignInReplacesEarlierSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	first := f.signUpVerified(t, "a@b.com", "secret123")

	// Token timestamps have millisecond granularity; without this the
	// second pair could be byte-identical to the first.
	time.Sleep(5 * time.Millisecond)

	second, err := f.auth.SignIn(ctx, inbound.SigninRequest{Email: "a@b.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.auth.Reissue(ctx, first.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenMismatch))

	// The newer session is unaffected by the stale token's attempt.
	stored, err := f.registry.Get(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, stored)
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	pair := f.signUpVerified(t, "a@b.com", "secret123")

	require.NoError(t, f.auth.SignOut(ctx, pair.RefreshToken))

	exists, err := f.registry.Exists(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, exists)

	// A second signout with the same token finds no session.
	err = f.auth.SignOut(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidToken))

	// Neither can the token be used to reissue.
	_, err = f.auth.Reissue(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenNotFound))
}

func TestSignOutRejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	pair := f.signUpVerified(t, "a@b.com", "secret123")

	bare := pair.AccessToken[len("Bearer "):]
	err := f.auth.SignOut(ctx, bare)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenTypeMismatch))

	// The session survives the rejected call.
	exists, existsErr := f.registry.Exists(ctx, "a@b.com")
	require.NoError(t, existsErr)
	assert.True(t, exists)
}

func TestReissueRotatesToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	pair := f.signUpVerified(t, "a@b.com", "secret123")

	time.Sleep(5 * time.Millisecond)

	rotated, err := f.auth.Reissue(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	stored, err := f.registry.Get(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, rotated.RefreshToken, stored)

	// The rotated-away token is dead.
	_, err = f.auth.Reissue(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenMismatch))

	// The replay did not revoke the live token.
	time.Sleep(5 * time.Millisecond)
	_, err = f.auth.Reissue(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestReissueInputValidation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	pair := f.signUpVerified(t, "a@b.com", "secret123")

	t.Run("empty token", func(t *testing.T) {
		_, err := f.auth.Reissue(ctx, "")
		assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidToken))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.auth.Reissue(ctx, "not-a-jwt")
		assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidToken))
	})

	t.Run("access token", func(t *testing.T) {
		bare := pair.AccessToken[len("Bearer "):]
		_, err := f.auth.Reissue(ctx, bare)
		assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenTypeMismatch))
	})
}

func TestReissueExpiredRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	repo := newMemoryUserRepo()
	codec := newShortLivedCodec()
	registry := NewRefreshTokenRegistry(store, time.Hour)
	verify := NewEmailVerificationUseCase(repo, store, newMemoryMailer(), nopLogger(), 10*time.Minute, 24*time.Hour)
	auth := NewAuthUseCase(repo, registry, codec, newTestPasswordService(), verify, store, newMemoryMailer(), nopLogger(),
		10*time.Minute, "https://app.example.com")

	pair, err := auth.IssuePairFor(ctx, valueobject.Principal{
		UserID: 1, Email: "a@b.com", Role: entity.RoleUser, AccountKind: entity.AccountLocal,
	})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = auth.Reissue(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeExpiredToken))
}

func TestIssuePairForFederatedPrincipal(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	principal := valueobject.Principal{
		UserID: 42, Email: "oauth@b.com", Role: entity.RoleUser, AccountKind: entity.AccountOAuth,
	}
	pair, err := f.auth.IssuePairFor(ctx, principal)
	require.NoError(t, err)

	stored, err := f.registry.Get(ctx, "oauth@b.com")
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, stored)

	claims, err := f.codec.Decode(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, principal, claims.Principal())
}

func TestCheckPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUpVerified(t, "a@b.com", "secret123")
	user, err := f.repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	principal := valueobject.PrincipalFromUser(user)

	assert.NoError(t, f.auth.CheckPassword(ctx, principal, "secret123"))

	err = f.auth.CheckPassword(ctx, principal, "wrongpass")
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidCredentials))
}

func TestUpdatePasswordRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	pair := f.signUpVerified(t, "a@b.com", "secret123")
	user, err := f.repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	principal := valueobject.PrincipalFromUser(user)

	require.NoError(t, f.auth.UpdatePassword(ctx, principal, "newsecret1"))

	// The old refresh token no longer reissues.
	_, err = f.auth.Reissue(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenNotFound))

	// Only the new password signs in.
	_, err = f.auth.SignIn(ctx, inbound.SigninRequest{Email: "a@b.com", Password: "secret123"})
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidCredentials))
	_, err = f.auth.SignIn(ctx, inbound.SigninRequest{Email: "a@b.com", Password: "newsecret1"})
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	pair := f.signUpVerified(t, "a@b.com", "secret123")
	user, err := f.repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	principal := valueobject.PrincipalFromUser(user)

	require.NoError(t, f.auth.DeleteAccount(ctx, principal))

	_, err = f.repo.FindByEmail(ctx, "a@b.com")
	assert.ErrorIs(t, err, outbound.ErrUserNotFound)

	_, err = f.auth.Reissue(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenNotFound))

	// Deleting again reports the missing account.
	err = f.auth.DeleteAccount(ctx, principal)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeUserNotFound))
}

func TestCheckEmailDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUpVerified(t, "a@b.com", "secret123")

	assert.NoError(t, f.auth.CheckEmailDuplicate(ctx, "free@b.com"))

	err := f.auth.CheckEmailDuplicate(ctx, "a@b.com")
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeDuplicateUser))
}

func TestPasswordResetWithToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	pair := f.signUpVerified(t, "a@b.com", "secret123")

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "a@b.com"))

	mail, ok := f.mailer.last()
	require.True(t, ok)
	assert.Equal(t, "a@b.com", mail.to)
	assert.Contains(t, mail.body, "https://app.example.com/reset-password?token=")

	match := resetTokenPattern.FindStringSubmatch(mail.body)
	require.Len(t, match, 2)
	resetToken := match[1]

	require.NoError(t, f.auth.ResetPasswordWithToken(ctx, resetToken, "newsecret1"))

	// Live sessions are revoked alongside the change.
	_, err := f.auth.Reissue(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeTokenNotFound))

	_, err = f.auth.SignIn(ctx, inbound.SigninRequest{Email: "a@b.com", Password: "newsecret1"})
	assert.NoError(t, err)

	// The token is single use.
	err = f.auth.ResetPasswordWithToken(ctx, resetToken, "another123")
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidToken))
}

func TestPasswordResetRequestForUnknownEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	err := f.auth.RequestPasswordReset(ctx, "nobody@b.com")
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeUserNotFound))
	assert.Equal(t, 0, f.mailer.count())
}

func TestPasswordResetWithBogusToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	err := f.auth.ResetPasswordWithToken(ctx, "never-issued", "newsecret1")
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidToken))
}

func TestPasswordResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUpVerified(t, "a@b.com", "secret123")

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "a@b.com"))
	mail, ok := f.mailer.last()
	require.True(t, ok)
	match := resetTokenPattern.FindStringSubmatch(mail.body)
	require.Len(t, match, 2)

	f.store.advance(11 * time.Minute)

	err := f.auth.ResetPasswordWithToken(ctx, match[1], "newsecret1")
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidToken))
}

func TestResetPasswordWithEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUpVerified(t, "a@b.com", "secret123")

	t.Run("verified local account", func(t *testing.T) {
		require.NoError(t, f.auth.ResetPasswordWithEmail(ctx, "a@b.com", "newsecret1"))

		_, err := f.auth.SignIn(ctx, inbound.SigninRequest{Email: "a@b.com", Password: "newsecret1"})
		assert.NoError(t, err)
	})

	t.Run("unverified email", func(t *testing.T) {
		err := f.auth.ResetPasswordWithEmail(ctx, "stranger@b.com", "newsecret1")
		assert.True(t, apperror.IsCode(err, apperror.ErrCodeEmailNotVerified))
	})

	t.Run("federated account", func(t *testing.T) {
		_, err := f.repo.Create(ctx, entity.NewUser("oauth@b.com", "", entity.RoleUser, entity.AccountOAuth))
		require.NoError(t, err)
		require.NoError(t, f.store.Set(ctx, "emailVerified:oauth@b.com", "true", time.Hour))

		err = f.auth.ResetPasswordWithEmail(ctx, "oauth@b.com", "newsecret1")
		assert.True(t, apperror.IsCode(err, apperror.ErrCodePasswordChangeNotAllowed))
	})
}
