package config

import (
	"bytes"
	"errors"
	"testing"

	"loanbook/internal/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor("mysql://root:pw@tcp(db:3306)/loans")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = dialectorFor("sqlite://file::memory:")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	_, err = dialectorFor("postgres://localhost/loans")
	assert.Error(t, err)
}

func TestConnectDatabase_SQLite(t *testing.T) {
	cfg := &Config{AppMode: "dev", Database: DatabaseConfig{URL: "sqlite://file:connecttest?mode=memory&cache=shared"}}

	db, err := ConnectDatabase(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	assert.NoError(t, HealthCheck(db))
	assert.Error(t, HealthCheck(nil))
}

func TestConnectDatabase_LogsQueryErrorsThroughServiceLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{AppMode: "dev", Database: DatabaseConfig{URL: "sqlite://file:gormlogtest?mode=memory&cache=shared"}}

	db, err := ConnectDatabase(cfg, logging.NewWithWriter(&buf, "info", ServiceLoan, "dev"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	type note struct {
		ID   uint
		Text string
	}
	require.NoError(t, db.AutoMigrate(&note{}))
	buf.Reset()

	var n note
	err = db.First(&n, 42).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.NotContains(t, buf.String(), "record not found")

	err = db.Raw("SELECT * FROM missing_table").Scan(&n).Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing_table")
	assert.Contains(t, buf.String(), `"service":"loan"`)
	assert.NotContains(t, buf.String(), `\u001b`)
}
