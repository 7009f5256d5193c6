package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/pgEdge/pgedge-salesync/internal/model"
	"github.com/pgEdge/pgedge-salesync/internal/secrets"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pgedge-salesync")
}

func TestJobsCommand(t *testing.T) {
	out, err := execute(t, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "etl")
	assert.Contains(t, out, "0 0 2 * * *")
	assert.Contains(t, out, "index")
	assert.Contains(t, out, "0 30 2 * * *")
	assert.Contains(t, out, "insights")
}

func TestInvalidLogFormat(t *testing.T) {
	_, err := execute(t, "version", "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
	logFormat = ""
}

func TestSecretCommands(t *testing.T) {
	keyring.MockInit()

	out, err := execute(t, "secret", "set", secrets.SecretSearchKey, "s3cr3t")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored secret search-key")

	v, err := keyring.Get("pgedge-salesync", secrets.SecretSearchKey)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)

	_, err = execute(t, "secret", "delete", secrets.SecretSearchKey)
	require.NoError(t, err)
	_, err = keyring.Get("pgedge-salesync", secrets.SecretSearchKey)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestDescribe(t *testing.T) {
	assert.NotEmpty(t, describe("etl"))
	assert.NotEmpty(t, describe("index"))
	assert.NotEmpty(t, describe("insights"))
	assert.Empty(t, describe("reindex"))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", str(nil))
	assert.Equal(t, "EMEA", str(model.Str("EMEA")))

	assert.Equal(t, "1500.50", money(decimal.RequireFromString("1500.5")))
	assert.Equal(t, "-", moneyPtr(nil))

	d := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-01", day(d))
	assert.Equal(t, "-", day(time.Time{}))
	assert.Equal(t, "-", timePtr(nil))

	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 20)
	assert.Equal(t, "xxxxxxx...", truncate(long, 10))
}

func TestNewTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := newTable(&buf, "Table", "Rows")
	tbl.Append([]string{"customers", "42"})
	tbl.Render()

	out := buf.String()
	assert.Contains(t, out, "TABLE")
	assert.Contains(t, out, "customers")
	assert.Contains(t, out, "42")
}
