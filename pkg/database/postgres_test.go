package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/scholarship-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", Name: "scholarship"})
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/scholarship?application_name=scholarship-api&sslmode=disable", dsn)
}

func TestDSNKeepsSSLMode(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "app", Name: "x", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
	assert.Contains(t, dsn, "@db:5433/x")
}
