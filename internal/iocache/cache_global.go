package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/repopulse/schema"
)

// Manager is the process-wide store manager used by the CLI.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores opens the result cache and history stores once per process.
// The none backend leaves the corresponding store nil, which disables it.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, historyBackend schema.DatabaseBackend, historyConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var results *CacheStoreImpl
		if cacheBackend != "" && cacheBackend != schema.NoneBackend {
			store, err := NewCacheStore(resultTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize result cache: %w", err)
				return
			}
			results = store
		}

		var history *HistoryStoreImpl
		if historyBackend != "" && historyBackend != schema.NoneBackend {
			store, err := NewHistoryStore(historyBackend, historyConnStr)
			if err != nil {
				if results != nil {
					_ = results.Close()
				}
				initErr = fmt.Errorf("failed to initialize history store: %w", err)
				return
			}
			history = store
		}

		Manager.Lock()
		defer Manager.Unlock()
		// Typed nil pointers would become non-nil interfaces.
		if results != nil {
			Manager.results = results
		}
		if history != nil {
			Manager.history = history
		}
	})

	return initErr
}

// CloseStores closes every open store. Safe to call more than once.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.results != nil {
			_ = Manager.results.Close()
		}
		if Manager.history != nil {
			_ = Manager.history.Close()
		}
	})
}

// ClearCache removes all cached results.
// SQLite deletes the database file; MySQL and PostgreSQL drop the table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, resultTable)
}

// ClearHistory removes every recorded run.
func ClearHistory(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	// The migrate bookkeeping table goes too so a later migrate starts from scratch.
	return clearBackend(backend, dbFilePath, connStr, developerStatsTable, runsTable, "schema_migrations")
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		name, _ := driverName(backend)
		for _, table := range tables {
			if err := dropSQLTable(name, connStr, table, backend); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// dropSQLTable connects to the SQL database and drops the table if it exists.
func dropSQLTable(driver, connStr, tableName string, backend schema.DatabaseBackend) error {
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}
	if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(tableName, backend))); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
