package accounts_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossex/cross/internal/accounts"
)

func newService(t *testing.T) (accounts.Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	svc, err := accounts.NewFileService(path)
	require.NoError(t, err)
	return svc, path
}

func TestRegisterAndValidate(t *testing.T) {
	svc, _ := newService(t)

	require.NoError(t, svc.Register("alice", "hunter2"))

	assert.NoError(t, svc.Validate("alice", "hunter2"))
	assert.ErrorIs(t, svc.Validate("alice", "wrong"), accounts.ErrBadCredentials)
	assert.ErrorIs(t, svc.Validate("bob", "hunter2"), accounts.ErrUnknownUser)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newService(t)

	require.NoError(t, svc.Register("alice", "hunter2"))
	assert.ErrorIs(t, svc.Register("alice", "other"), accounts.ErrUserExists)
}

func TestRegisterEmptyFields(t *testing.T) {
	svc, _ := newService(t)

	assert.ErrorIs(t, svc.Register("", "hunter2"), accounts.ErrInvalidInput)
	assert.ErrorIs(t, svc.Register("alice", ""), accounts.ErrInvalidInput)
}

func TestUpdatePassword(t *testing.T) {
	svc, _ := newService(t)
	require.NoError(t, svc.Register("alice", "hunter2"))

	assert.ErrorIs(t, svc.UpdatePassword("alice", "wrong", "newpass"), accounts.ErrBadCredentials)
	assert.ErrorIs(t, svc.UpdatePassword("alice", "hunter2", "hunter2"), accounts.ErrSamePassword)
	assert.ErrorIs(t, svc.UpdatePassword("bob", "hunter2", "newpass"), accounts.ErrUnknownUser)

	require.NoError(t, svc.UpdatePassword("alice", "hunter2", "newpass"))
	assert.ErrorIs(t, svc.Validate("alice", "hunter2"), accounts.ErrBadCredentials)
	assert.NoError(t, svc.Validate("alice", "newpass"))
}

func TestAccountsPersistAcrossReopen(t *testing.T) {
	svc, path := newService(t)
	require.NoError(t, svc.Register("alice", "hunter2"))

	reopened, err := accounts.NewFileService(path)
	require.NoError(t, err)

	assert.NoError(t, reopened.Validate("alice", "hunter2"))
	assert.ErrorIs(t, reopened.Register("alice", "other"), accounts.ErrUserExists)
}
