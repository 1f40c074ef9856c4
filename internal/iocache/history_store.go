package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/schema"
)

// Table names for run history.
const (
	runsTable           = "repopulse_runs"
	developerStatsTable = "repopulse_developer_stats"
)

// HistoryStoreImpl records analysis runs and their per-developer attribution rows.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore opens the backend and creates the history tables when missing.
// The none backend returns a store that records nothing.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}
	for _, query := range historyTableQueries(backend) {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create history tables: %w", err)
		}
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// historyTableQueries mirrors the first migration so a fresh database works without running migrate.
func historyTableQueries(backend schema.DatabaseBackend) []string {
	runs := quoteTableName(runsTable, backend)
	devs := quoteTableName(developerStatsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms BIGINT,
				range_start VARCHAR(10) NOT NULL,
				range_end VARCHAR(10) NOT NULL,
				total_repos INT NOT NULL DEFAULT 0,
				valid_repos INT NOT NULL DEFAULT 0,
				ruleset_hash VARCHAR(64) NOT NULL,
				config_params TEXT
			)`, runs),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) NOT NULL,
				repository VARCHAR(255) NOT NULL,
				developer VARCHAR(255) NOT NULL,
				commits INT NOT NULL,
				lines_added BIGINT NOT NULL,
				lines_removed BIGINT NOT NULL,
				ai_lines_added BIGINT NOT NULL,
				ai_lines_removed BIGINT NOT NULL,
				ai_commits INT NOT NULL,
				ai_percentage DOUBLE NOT NULL,
				PRIMARY KEY (run_id, repository, developer)
			)`, devs),
		}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms BIGINT,
				range_start TEXT NOT NULL,
				range_end TEXT NOT NULL,
				total_repos INTEGER NOT NULL DEFAULT 0,
				valid_repos INTEGER NOT NULL DEFAULT 0,
				ruleset_hash TEXT NOT NULL,
				config_params TEXT
			)`, runs),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT NOT NULL,
				repository TEXT NOT NULL,
				developer TEXT NOT NULL,
				commits INTEGER NOT NULL,
				lines_added BIGINT NOT NULL,
				lines_removed BIGINT NOT NULL,
				ai_lines_added BIGINT NOT NULL,
				ai_lines_removed BIGINT NOT NULL,
				ai_commits INTEGER NOT NULL,
				ai_percentage DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (run_id, repository, developer)
			)`, devs),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				range_start TEXT NOT NULL,
				range_end TEXT NOT NULL,
				total_repos INTEGER NOT NULL DEFAULT 0,
				valid_repos INTEGER NOT NULL DEFAULT 0,
				ruleset_hash TEXT NOT NULL,
				config_params TEXT
			)`, runs),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT NOT NULL,
				repository TEXT NOT NULL,
				developer TEXT NOT NULL,
				commits INTEGER NOT NULL,
				lines_added INTEGER NOT NULL,
				lines_removed INTEGER NOT NULL,
				ai_lines_added INTEGER NOT NULL,
				ai_lines_removed INTEGER NOT NULL,
				ai_commits INTEGER NOT NULL,
				ai_percentage REAL NOT NULL,
				PRIMARY KEY (run_id, repository, developer)
			)`, devs),
		}
	}
}

// BeginRun inserts the run row.
func (hs *HistoryStoreImpl) BeginRun(runID string, startTime time.Time, dateRange schema.DateRange, rulesetHash string, configParams map[string]any) error {
	if hs.db == nil {
		return nil
	}
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return fmt.Errorf("failed to marshal config params: %w", err)
	}

	query := rebind(fmt.Sprintf(`INSERT INTO %s (run_id, start_time, range_start, range_end, ruleset_hash, config_params)
		VALUES (?, ?, ?, ?, ?, ?)`, quoteTableName(runsTable, hs.backend)), hs.backend)
	if _, err := hs.db.Exec(query, runID, formatTime(startTime, hs.backend), dateRange.StartDay(), dateRange.EndDay(), rulesetHash, string(configJSON)); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}
	return nil
}

// EndRun stores completion time, duration and repository counts.
func (hs *HistoryStoreImpl) EndRun(runID string, endTime time.Time, totalRepos, validRepos int) error {
	if hs.db == nil {
		return nil
	}
	quoted := quoteTableName(runsTable, hs.backend)

	var start dbTime
	selectQuery := rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, quoted), hs.backend)
	if err := hs.db.QueryRow(selectQuery, runID).Scan(&start); err != nil {
		return fmt.Errorf("failed to get start_time for run %s: %w", runID, err)
	}

	updateQuery := rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_repos = ?, valid_repos = ? WHERE run_id = ?`, quoted), hs.backend)
	durationMs := endTime.Sub(start.Time).Milliseconds()
	if _, err := hs.db.Exec(updateQuery, formatTime(endTime, hs.backend), durationMs, totalRepos, validRepos, runID); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return nil
}

// RecordRepository stores one row per developer of result in a single transaction.
func (hs *HistoryStoreImpl) RecordRepository(runID string, result schema.RepositoryResult) error {
	if hs.db == nil || len(result.DeveloperStats) == 0 {
		return nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(fmt.Sprintf(`INSERT INTO %s (run_id, repository, developer, commits, lines_added, lines_removed,
		ai_lines_added, ai_lines_removed, ai_commits, ai_percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, quoteTableName(developerStatsTable, hs.backend)), hs.backend)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare developer insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range result.DeveloperStats {
		if _, err := stmt.Exec(runID, result.Name, d.Name, d.Commits, d.LinesAdded, d.LinesRemoved,
			d.AILinesAdded, d.AILinesRemoved, d.AICommits, d.AIPercentage); err != nil {
			return fmt.Errorf("failed to insert developer %s for %s: %w", d.Name, result.Name, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus reports run counts, the latest run and row counts per table.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}
	runs := quoteTableName(runsTable, hs.backend)

	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(total_repos), 0) FROM %s", runs)).
		Scan(&status.TotalRuns, &status.TotalReposScanned); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var last, oldest dbTime
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY start_time DESC LIMIT 1", runs)).
			Scan(&status.LastRunID, &last); err != nil {
			return status, fmt.Errorf("failed to get last run: %w", err)
		}
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT MIN(start_time) FROM %s", runs)).Scan(&oldest); err != nil {
			return status, fmt.Errorf("failed to get oldest run: %w", err)
		}
		status.LastRunTime = last.Time
		status.OldestRunTime = oldest.Time
	}

	for _, table := range []string{runsTable, developerStatsTable} {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns returns every run ordered by start time.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, range_start, range_end,
		total_repos, valid_repos, ruleset_hash, config_params FROM %s ORDER BY start_time, run_id`, quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var start, end dbTime
		if err := rows.Scan(&record.RunID, &start, &end, &record.RunDurationMs, &record.RangeStart, &record.RangeEnd,
			&record.TotalRepos, &record.ValidRepos, &record.RulesetHash, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		record.StartTime = start.Time
		if end.Valid {
			endTime := end.Time
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllDeveloperRecords returns every developer row ordered by run, repository and developer.
func (hs *HistoryStoreImpl) GetAllDeveloperRecords() ([]schema.DeveloperRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, repository, developer, commits, lines_added, lines_removed,
		ai_lines_added, ai_lines_removed, ai_commits, ai_percentage
		FROM %s ORDER BY run_id, repository, developer`, quoteTableName(developerStatsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query developer records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.DeveloperRecord
	for rows.Next() {
		var r schema.DeveloperRecord
		if err := rows.Scan(&r.RunID, &r.Repository, &r.Developer, &r.Commits, &r.LinesAdded, &r.LinesRemoved,
			&r.AILinesAdded, &r.AILinesRemoved, &r.AICommits, &r.AIPercentage); err != nil {
			return nil, fmt.Errorf("failed to scan developer record: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating developer records: %w", err)
	}
	return results, nil
}
