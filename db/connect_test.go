package db

import (
	"strings"
	"testing"
)

func TestPostgresDSN(t *testing.T) {
	resetEnv := func(t *testing.T) {
		for _, k := range []string{"DB_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
			t.Setenv(k, "")
		}
	}

	t.Run("URLGetsSSLMode", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("DB_URL", "postgres://u:p@db.example/lists")
		dsn, err := postgresDSN()
		if err != nil {
			t.Fatalf("postgresDSN() error = %v", err)
		}
		if dsn != "postgres://u:p@db.example/lists?sslmode=require" {
			t.Errorf("unexpected dsn %q", dsn)
		}
	})

	t.Run("URLKeepsExplicitSSLMode", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("DB_URL", "postgres://u:p@localhost/lists?sslmode=disable")
		dsn, _ := postgresDSN()
		if strings.Count(dsn, "sslmode") != 1 {
			t.Errorf("sslmode duplicated in %q", dsn)
		}
	})

	t.Run("LocalParameters", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("DB_USER", "lists")
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("DB_NAME", "lists")
		dsn, err := postgresDSN()
		if err != nil {
			t.Fatalf("postgresDSN() error = %v", err)
		}
		if !strings.Contains(dsn, "sslmode=disable") {
			t.Errorf("expected sslmode=disable for localhost, got %q", dsn)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		resetEnv(t)
		if _, err := postgresDSN(); err == nil {
			t.Error("expected error when no database settings are present")
		}
	})
}
