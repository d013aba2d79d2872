package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notespace/api/internal/auth"
	"notespace/api/internal/authpw"
)

func requireStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	gotStatus, gotCode, _, _ := mapError(err)
	assert.Equal(t, status, gotStatus, "error: %v", err)
	if code != "" {
		assert.Equal(t, code, gotCode, "error: %v", err)
	}
}

func TestRegisterCreatesInboxAndSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, current, err := env.service.Register(ctx, authpw.SignUpRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.DisplayName)
	assert.NotEmpty(t, current.Token)
	assert.NotEmpty(t, current.RefreshToken)

	workspaces, err := env.service.ListWorkspaces(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.True(t, workspaces[0].IsDefault)
	assert.Equal(t, "OWNER", workspaces[0].Role)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	_, _, err := env.service.Register(context.Background(), authpw.SignUpRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "correct-horse",
	})
	require.ErrorIs(t, err, authpw.ErrUsernameTaken)
	requireStatus(t, err, http.StatusConflict, "USERNAME_EXISTS")
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.service.Register(context.Background(), authpw.SignUpRequest{
		Username: "bob",
		Email:    "not-an-email",
		Password: "correct-horse",
	})
	requireStatus(t, err, http.StatusBadRequest, "")
}

func TestLoginByEmailOrUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	ctx := context.Background()

	for _, login := range []string{"alice", "alice@example.com"} {
		result, err := env.service.Login(ctx, login, "correct-horse")
		require.NoError(t, err, login)
		require.NotNil(t, result.Session, login)
		assert.False(t, result.RequiresTwoFactor)
	}

	_, err := env.service.Login(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, authpw.ErrInvalidCredentials)
	requireStatus(t, err, http.StatusUnauthorized, "")
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	current := env.register(t, "alice")
	ctx := context.Background()

	next, err := env.service.Refresh(ctx, current.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, current.RefreshToken, next.RefreshToken)

	_, err = env.service.Refresh(ctx, current.RefreshToken)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	current := env.register(t, "alice")
	ctx := context.Background()

	parsed, err := env.service.SessionFromToken(ctx, current.Token)
	require.NoError(t, err)
	require.NoError(t, env.service.Logout(ctx, parsed, current.RefreshToken))

	_, err = env.service.SessionFromToken(ctx, current.Token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = env.service.Refresh(ctx, current.RefreshToken)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func newDevCodesEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	cfg.DevExposeCodes = true
	return newTestEnvWithConfig(t, cfg)
}

// loginWithTwoFactor enables two-factor for a fresh user and returns the
// pending login.
func loginWithTwoFactor(t *testing.T, env *testEnv, username string) (Session, LoginResult) {
	t.Helper()
	ctx := context.Background()
	current := env.register(t, username)
	require.NoError(t, env.service.SetTwoFactor(ctx, current.UserID, true))
	result, err := env.service.Login(ctx, username, "correct-horse")
	require.NoError(t, err)
	require.True(t, result.RequiresTwoFactor)
	require.Nil(t, result.Session)
	require.NotEmpty(t, result.Challenge)
	return current, result
}

func TestTwoFactorChallengeIsSingleUse(t *testing.T) {
	env := newDevCodesEnv(t)
	current, result := loginWithTwoFactor(t, env, "alice")
	ctx := context.Background()
	require.NotEmpty(t, result.DevCode)

	session, err := env.service.VerifyTwoFactor(ctx, result.Challenge, result.DevCode)
	require.NoError(t, err)
	assert.Equal(t, current.UserID, session.UserID)

	_, err = env.service.VerifyTwoFactor(ctx, result.Challenge, result.DevCode)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = env.service.SendTwoFactorCode(ctx, result.Challenge)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTwoFactorRequiresLoginChallenge(t *testing.T) {
	env := newDevCodesEnv(t)
	current, result := loginWithTwoFactor(t, env, "alice")
	ctx := context.Background()

	_, err := env.service.SendTwoFactorCode(ctx, "alice@example.com")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = env.service.SendTwoFactorCode(ctx, "")
	requireStatus(t, err, http.StatusBadRequest, "VALIDATION_ERROR")

	_, err = env.service.VerifyTwoFactor(ctx, current.Token, result.DevCode)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = env.service.VerifyTwoFactor(ctx, current.UserID, result.DevCode)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = env.service.SessionFromToken(ctx, result.Challenge)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTwoFactorCodeExpires(t *testing.T) {
	env := newDevCodesEnv(t)
	current, result := loginWithTwoFactor(t, env, "alice")
	env.store.expireCodes(current.UserID)

	_, err := env.service.VerifyTwoFactor(context.Background(), result.Challenge, result.DevCode)
	require.ErrorIs(t, err, authpw.ErrCodeExpired)
}

func TestTwoFactorResendInvalidatesOld(t *testing.T) {
	env := newDevCodesEnv(t)
	_, result := loginWithTwoFactor(t, env, "alice")
	ctx := context.Background()

	second, err := env.service.SendTwoFactorCode(ctx, result.Challenge)
	require.NoError(t, err)
	if result.DevCode == second {
		t.Skip("codes collided")
	}

	_, err = env.service.VerifyTwoFactor(ctx, result.Challenge, result.DevCode)
	require.ErrorIs(t, err, authpw.ErrCodeMismatch)
	_, err = env.service.VerifyTwoFactor(ctx, result.Challenge, second)
	require.NoError(t, err)
}

func TestTwoFactorCodeMailedWhenConfigured(t *testing.T) {
	env := newDevCodesEnv(t)
	env.mailer.configured = true
	_, result := loginWithTwoFactor(t, env, "alice")

	assert.Empty(t, result.DevCode)
	code, err := env.service.SendTwoFactorCode(context.Background(), result.Challenge)
	require.NoError(t, err)
	assert.Empty(t, code)
	env.service.Wait()
	assert.Equal(t, []string{"two_factor", "two_factor"}, env.mailer.kinds())
}

func TestCodesHiddenUnlessExposureEnabled(t *testing.T) {
	env := newTestEnv(t)
	_, result := loginWithTwoFactor(t, env, "alice")
	assert.Empty(t, result.DevCode)

	code, err := env.service.SendTwoFactorCode(context.Background(), result.Challenge)
	require.NoError(t, err)
	assert.Empty(t, code)

	token, err := env.service.ForgotPassword(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newDevCodesEnv(t)
	env.register(t, "alice")
	ctx := context.Background()

	token, err := env.service.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	unknown, err := env.service.ForgotPassword(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, unknown)

	require.NoError(t, env.service.ResetPassword(ctx, token, "new-password-1"))
	err = env.service.ResetPassword(ctx, token, "new-password-2")
	require.True(t, errors.Is(err, authpw.ErrCodeUsed), "got %v", err)

	_, err = env.service.Login(ctx, "alice", "correct-horse")
	require.ErrorIs(t, err, authpw.ErrInvalidCredentials)
	_, err = env.service.Login(ctx, "alice", "new-password-1")
	require.NoError(t, err)
}

func TestGoogleLoginDisabled(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.GoogleAuthURL("state")
	requireStatus(t, err, http.StatusServiceUnavailable, "OAUTH_UNAVAILABLE")
}
