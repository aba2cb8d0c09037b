package migration

import (
	"bytes"
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"storefront/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, sourceDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.Equal(t, ups, downs)
}

func TestInitialSchemaDefinesAuthTables(t *testing.T) {
	raw, err := fs.ReadFile(migrationFS, "sql/000001_init_auth.up.sql")
	require.NoError(t, err)

	schema := string(raw)
	for _, table := range []string{"roles", "permissions", "role_permissions", "users", "devices", "refresh_tokens", "verification_codes"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.Contains(t, schema, "ON verification_codes (email, type)")
	assert.Contains(t, schema, "token_hash CHAR(64)    NOT NULL UNIQUE")
}

func TestNewValidatesDatabaseURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "missing", url: "", wantErr: true},
		{name: "wrong scheme", url: "postgres://u:p@localhost/db", wantErr: true},
		{name: "pgx5", url: "pgx5://u:p@localhost:5432/db?sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Migration: &config.MigrationConfig{DatabaseURL: tt.url}}

			m, err := New(cfg, logger)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.url, m.databaseURL)
		})
	}
}

func TestSlogMigrateLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &slogMigrateLogger{logger: slog.New(slog.NewTextHandler(&buf, nil)), verbose: true}

	l.Printf("1/u init_auth (%dms)\n", 12)

	assert.True(t, l.Verbose())
	assert.Contains(t, buf.String(), "1/u init_auth (12ms)")
}
