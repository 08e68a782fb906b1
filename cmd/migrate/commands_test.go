package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/inversionreal/storefront/pkg/auth"
	"github.com/inversionreal/storefront/pkg/database"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--database-url", dsn}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func tempDSN(t *testing.T) string {
	return "file:" + filepath.Join(t.TempDir(), "storefront.db") + "?_fk=1"
}

func TestMigrateCommands(t *testing.T) {
	dsn := tempDSN(t)

	out, err := run(t, dsn, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version: 0")

	out, err = run(t, dsn, "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version: 2")

	out, err = run(t, dsn, "down")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version: 1")

	_, err = run(t, dsn, "down", "zero")
	assert.Error(t, err)

	out, err = run(t, dsn, "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version: 2")
}

func TestCreateAdminCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := run(t, dsn, "create-admin", "root", "--password", "s3cret-password")
	require.NoError(t, err)
	assert.Contains(t, out, `created admin "root"`)

	db, err := database.NewClient(dsn)
	require.NoError(t, err)
	defer db.Close()
	admin, err := store.New(db).GetAdminByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, "s3cret-password"))

	_, err = run(t, dsn, "create-admin", "root", "--password", "s3cret-password")
	assert.ErrorContains(t, err, "already exists")

	t.Setenv("ADMIN_PASSWORD", "short")
	_, err = run(t, dsn, "create-admin", "other")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}
