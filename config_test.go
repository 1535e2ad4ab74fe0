package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var databaseEnvKeys = []string{
	"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
	"POSTGRES_HOST", "POSTGRES_PORT",
}

// clearEnv unsets the keys for the duration of the test. t.Setenv registers
// the restore; the Unsetenv makes the key truly absent, which matters because
// godotenv never overrides a variable that is present, even when empty.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// chdir switches to dir for the duration of the test, restoring the previous
// working directory on cleanup (t.Chdir needs Go 1.24; this toolchain is older).
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
}

func writeDotEnv(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(contents), 0o600))
}

func TestLoadConfigReadsDotEnvFile(t *testing.T) {
	clearEnv(t, databaseEnvKeys...)

	dir := t.TempDir()
	writeDotEnv(t, dir,
		"POSTGRES_USER=store\n"+
			"POSTGRES_PASSWORD=secret\n"+
			"POSTGRES_DB=storefront\n"+
			"POSTGRES_HOST=db.internal\n")
	chdir(t, dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "store", cfg.PostgresUser)
	assert.Equal(t, "storefront", cfg.PostgresDB)
	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Contains(t, cfg.DSN(), "host=db.internal")
	assert.Contains(t, cfg.DSN(), "port=5432")
}

func TestLoadConfigEnvWinsOverDotEnv(t *testing.T) {
	clearEnv(t, databaseEnvKeys...)

	dir := t.TempDir()
	writeDotEnv(t, dir,
		"POSTGRES_USER=fromfile\n"+
			"POSTGRES_PASSWORD=secret\n"+
			"POSTGRES_DB=storefront\n"+
			"POSTGRES_HOST=db.internal\n")
	chdir(t, dir)
	t.Setenv("POSTGRES_USER", "fromenv")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.PostgresUser)
}

func TestLoadConfigIncompleteDatabase(t *testing.T) {
	clearEnv(t, databaseEnvKeys...)
	chdir(t, t.TempDir())

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database config incomplete")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t, databaseEnvKeys...)
	clearEnv(t, "ORDER_CANCEL_WINDOW", "FLASH_SALE_SWEEP_INTERVAL", "STRIPE_CURRENCY")

	dir := t.TempDir()
	writeDotEnv(t, dir,
		"POSTGRES_USER=store\n"+
			"POSTGRES_PASSWORD=secret\n"+
			"POSTGRES_DB=storefront\n"+
			"POSTGRES_HOST=localhost\n")
	chdir(t, dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, cfg.CancelWindow)
	assert.Equal(t, time.Minute, cfg.FlashSaleSweep)
	assert.Equal(t, "usd", cfg.StripeCurrency)
}
