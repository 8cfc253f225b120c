package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	store := NewMemoryStore()
	return NewService(Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}, store, store)
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, " Ada@Example.com ", "secret1", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sess.Identity.Email)
	assert.Equal(t, "Ada", sess.Identity.DisplayName)
	assert.NotEmpty(t, sess.Access.Token)
	assert.NotEmpty(t, sess.Refresh.Raw)

	who, err := svc.Verify(sess.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Identity, *who)

	sess2, err := svc.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.Identity.UserID, sess2.Identity.UserID)
}

func TestProviderErrors(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "ada@example.com", "secret1", "")
	require.NoError(t, err)

	cases := []struct {
		name string
		run  func() error
		code string
		msg  string
	}{
		{"email in use", func() error { _, err := svc.SignUp(ctx, "ada@example.com", "another1", ""); return err },
			CodeEmailInUse, "User already exists. Please sign in."},
		{"wrong password", func() error { _, err := svc.SignIn(ctx, "ada@example.com", "nope-nope"); return err },
			CodeWrongPassword, "Incorrect password."},
		{"user not found", func() error { _, err := svc.SignIn(ctx, "bob@example.com", "secret1"); return err },
			CodeUserNotFound, "No account found with this email."},
		{"weak password", func() error { _, err := svc.SignUp(ctx, "bob@example.com", "12345", ""); return err },
			CodeWeakPassword, "Password must be at least 6 characters."},
		{"invalid email", func() error { _, err := svc.SignIn(ctx, "not-an-email", "secret1"); return err },
			CodeInvalidEmail, "Invalid email address."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.Error(t, err)
			assert.Equal(t, tc.code, Code(err))
			assert.Equal(t, tc.msg, Describe(err))
			assert.Equal(t, tc.code == CodeEmailInUse, SwitchToSignIn(err))
		})
	}
}

func TestDescribeFallback(t *testing.T) {
	assert.Equal(t, "Something went wrong. Please try again.", Describe(errors.New("boom")))
	assert.Equal(t, "Something went wrong. Please try again.", Describe(newError(CodeInternal, nil)))
}

func TestRefreshAndSignOut(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	sess, err := svc.SignUp(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, sess.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Refresh.Raw, rotated.Refresh.Raw)

	_, err = svc.Refresh(ctx, sess.Refresh.Raw)
	assert.Equal(t, CodeInvalidToken, Code(err), "old refresh token is revoked")

	userID, err := svc.SignOut(ctx, nil, rotated.Refresh.Raw)
	require.NoError(t, err)
	assert.Equal(t, sess.Identity.UserID, userID)
	_, err = svc.Refresh(ctx, rotated.Refresh.Raw)
	assert.Equal(t, CodeInvalidToken, Code(err))

	again, err := svc.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	userID, err = svc.SignOut(ctx, &again.Identity, "")
	require.NoError(t, err)
	assert.Equal(t, again.Identity.UserID, userID)
	_, err = svc.Refresh(ctx, again.Refresh.Raw)
	assert.Equal(t, CodeInvalidToken, Code(err))

	_, err = svc.SignOut(ctx, nil, "")
	assert.Equal(t, CodeInvalidToken, Code(err))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := newTestService().Verify("not.a.jwt")
	assert.Equal(t, CodeInvalidToken, Code(err))
}
