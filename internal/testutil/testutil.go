// Package testutil provides shared test helpers for vaults and databases.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/starford/wikimeta/internal/database"
	"github.com/starford/wikimeta/internal/index"
	"github.com/starford/wikimeta/internal/metastore"
	"github.com/starford/wikimeta/internal/storage"
)

// TestConn creates a temporary SQLite database that is cleaned up with t.
func TestConn(t *testing.T) *sql.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "wikimeta-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	conn, err := database.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestIndex applies the index schema to conn.
func TestIndex(t *testing.T, conn *sql.DB) *index.DB {
	t.Helper()
	db, err := index.New(conn)
	if err != nil {
		t.Fatal(err)
	}
	return db
}

// TestMeta opens a metadata store on conn with a clock that advances one
// second per record, so listing order by time is deterministic.
func TestMeta(t *testing.T, conn *sql.DB) *metastore.Store {
	t.Helper()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s, err := metastore.Open(context.Background(), conn, metastore.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
