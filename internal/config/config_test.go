package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HERD_OWNER_ID", "owner-1")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "herd", cfg.MongoDB.DBName)
	assert.Equal(t, 499, cfg.Herd.BatchSize)
	assert.Equal(t, 20000, cfg.Herd.DailyWriteQuota)
	assert.Equal(t, 30, cfg.Sweep.ToleranceDays)
	assert.Equal(t, "0 3 * * *", cfg.Sweep.CronSchedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HERD_OWNER_ID=from-file\nHERD_BATCH_SIZE=100\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("HERD_OWNER_ID")
		os.Unsetenv("HERD_BATCH_SIZE")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Herd.OwnerID)
	assert.Equal(t, 100, cfg.Herd.BatchSize)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing owner":      {"HERD_OWNER_ID": ""},
		"batch too large":    {"HERD_OWNER_ID": "o", "HERD_BATCH_SIZE": "500"},
		"batch not a number": {"HERD_OWNER_ID": "o", "HERD_BATCH_SIZE": "many"},
		"negative tolerance": {"HERD_OWNER_ID": "o", "HERD_SWEEP_TOLERANCE_DAYS": "-1"},
		"zero quota":         {"HERD_OWNER_ID": "o", "HERD_DAILY_WRITE_QUOTA": "0"},
		"half sheets config": {"HERD_OWNER_ID": "o", "GOOGLE_SHEET_DATABASE_ID": "sheet"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestWhatsAppConfig_Enabled(t *testing.T) {
	cfg := WhatsAppConfig{AccessToken: "t", PhoneNumberID: "p"}
	assert.False(t, cfg.Enabled())
	cfg.RecipientID = "5511999999999"
	assert.True(t, cfg.Enabled())
}
