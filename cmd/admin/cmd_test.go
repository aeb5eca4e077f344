package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"achievement-service/internal/user"
	"achievement-service/internal/user/usertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type countingPurger struct{ calls int }

func (p *countingPurger) DeleteExpiredTokens(ctx context.Context) error {
	p.calls++
	return nil
}

func newCLI() (*commandLine, *usertest.Memory, *countingPurger, *bytes.Buffer) {
	users := usertest.NewMemory()
	purger := &countingPurger{}
	var out bytes.Buffer
	return &commandLine{users: users, tokens: purger, out: &out}, users, purger, &out
}

func stubPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func TestCommandLine(t *testing.T) {
	ctx := context.Background()

	t.Run("NoCommandPrintsUsage", func(t *testing.T) {
		cli, _, _, out := newCLI()

		err := cli.run(ctx, []string{"admin"})
		assert.ErrorIs(t, err, errHelp)
		assert.Contains(t, out.String(), "adduser")
	})

	t.Run("AddUserHashesPromptedPassword", func(t *testing.T) {
		cli, users, _, _ := newCLI()
		stubPassword(t, "s3cret!", nil)

		err := cli.run(ctx, []string{"admin", "adduser", "-email", " Prof@Uni.Test ", "-name", "Prof", "-role", "faculty", "-department", "CSE"})
		require.NoError(t, err)

		u, err := users.GetByEmail(ctx, "prof@uni.test")
		require.NoError(t, err)
		assert.Equal(t, user.RoleFaculty, u.Role)
		assert.Equal(t, user.DeptCSE, u.Department)
		assert.True(t, u.IsActive)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret!")))
	})

	t.Run("AddUserRejectsUnknownRole", func(t *testing.T) {
		cli, _, _, _ := newCLI()
		stubPassword(t, "s3cret!", nil)

		err := cli.run(ctx, []string{"admin", "adduser", "-email", "x@uni.test", "-name", "X", "-role", "root"})
		assert.ErrorIs(t, err, errHelp)
	})

	t.Run("AddUserShortPassword", func(t *testing.T) {
		cli, _, _, _ := newCLI()
		stubPassword(t, "abc", nil)

		err := cli.run(ctx, []string{"admin", "adduser", "-email", "x@uni.test", "-name", "X"})
		assert.Error(t, err)
	})

	t.Run("AddUserPromptFailure", func(t *testing.T) {
		cli, _, _, _ := newCLI()
		stubPassword(t, "", errors.New("not a terminal"))

		err := cli.run(ctx, []string{"admin", "adduser", "-email", "x@uni.test", "-name", "X"})
		assert.EqualError(t, err, "not a terminal")
	})

	t.Run("SetActive", func(t *testing.T) {
		cli, users, _, _ := newCLI()
		users.Add(user.User{Name: "Asha", Email: "asha@uni.test", Role: user.RoleStudent, IsActive: true})

		require.NoError(t, cli.run(ctx, []string{"admin", "setactive", "-email", "asha@uni.test", "-active=false"}))

		u, err := users.GetByEmail(ctx, "asha@uni.test")
		require.NoError(t, err)
		assert.False(t, u.IsActive)
	})

	t.Run("SetActiveUnknownEmail", func(t *testing.T) {
		cli, _, _, _ := newCLI()

		err := cli.run(ctx, []string{"admin", "setactive", "-email", "ghost@uni.test"})
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("PurgeTokens", func(t *testing.T) {
		cli, _, purger, out := newCLI()

		require.NoError(t, cli.run(ctx, []string{"admin", "purgetokens"}))
		assert.Equal(t, 1, purger.calls)
		assert.Contains(t, out.String(), "expired refresh tokens deleted")
	})
}
