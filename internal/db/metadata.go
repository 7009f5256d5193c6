//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/pkg/version"
)

const metadataTable = "etl_metadata"

// createMetadataTableSQL creates the metadata table if it doesn't exist.
const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS etl_metadata (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertMetadataSQL = `
INSERT INTO etl_metadata (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// Metadata keys.
const (
	KeySchemaVersion = "schema_version"
	KeyAppVersion    = "version"
	KeyInitializedAt = "initialized_at"
)

// LastRunKey returns the key holding a job's last completion time.
func LastRunKey(job string) string {
	return job + ".last_run_at"
}

// LastResultKey returns the key holding a job's last result message.
func LastResultKey(job string) string {
	return job + ".last_result"
}

// EnsureMetadata creates the metadata table if needed.
func EnsureMetadata(ctx context.Context, conn DB) error {
	if _, err := conn.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	return nil
}

// SaveInitMetadata records the schema and application versions written by
// the init command.
func SaveInitMetadata(ctx context.Context, conn DB) error {
	if err := EnsureMetadata(ctx, conn); err != nil {
		return err
	}

	metadata := map[string]string{
		KeySchemaVersion: version.SchemaVersion,
		KeyAppVersion:    version.Short(),
		KeyInitializedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for key, value := range metadata {
		if _, err := conn.Exec(ctx, upsertMetadataSQL, key, value); err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Str("schema_version", version.SchemaVersion).
		Msg("Saved init metadata")

	return nil
}

// RecordRun stores the completion time and result of a job run.
func RecordRun(ctx context.Context, conn DB, job, result string, at time.Time) error {
	if err := EnsureMetadata(ctx, conn); err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, upsertMetadataSQL, LastRunKey(job), at.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record %s run time: %w", job, err)
	}
	if _, err := conn.Exec(ctx, upsertMetadataSQL, LastResultKey(job), result); err != nil {
		return fmt.Errorf("failed to record %s result: %w", job, err)
	}
	return nil
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, conn DB, key string) (string, error) {
	var value string
	err := conn.QueryRow(ctx, `
        SELECT value FROM etl_metadata WHERE key = $1
    `, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// Entry is one metadata row.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// GetAllMetadata retrieves all metadata sorted by key.
func GetAllMetadata(ctx context.Context, conn DB) ([]Entry, error) {
	rows, err := conn.Query(ctx, `SELECT key, value, updated_at FROM etl_metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, conn DB) error {
	_, err := conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", metadataTable))
	return err
}

// MetadataExists checks if the metadata table exists.
func MetadataExists(ctx context.Context, conn DB) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_name = $1
        )
    `, metadataTable).Scan(&exists)
	return exists, err
}

// RunLog records job runs in the metadata table.
type RunLog struct {
	DB DB
}

// RecordRun stores the completion time and result of a job run.
func (r RunLog) RecordRun(ctx context.Context, job, result string, at time.Time) error {
	return RecordRun(ctx, r.DB, job, result, at)
}
