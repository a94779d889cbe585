package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

// SQLiteProvider implements DatabaseProvider on a local SQLite file.
type SQLiteProvider struct {
	db     *sql.DB
	mu     sync.RWMutex
	config *SQLiteConfig
}

var (
	sqliteJournalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	sqliteSyncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
)

// NewSQLiteProvider opens (creating if needed) the database at config.Path.
func NewSQLiteProvider(config *SQLiteConfig) (*SQLiteProvider, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if mode := strings.ToUpper(config.JournalMode); sqliteJournalModes[mode] {
		if _, err := db.Exec("PRAGMA journal_mode = " + mode); err != nil {
			logging.Warn("[SQLite] Could not set journal_mode %s: %v", mode, err)
		}
	}
	if mode := strings.ToUpper(config.Synchronous); sqliteSyncModes[mode] {
		if _, err := db.Exec("PRAGMA synchronous = " + mode); err != nil {
			logging.Warn("[SQLite] Could not set synchronous %s: %v", mode, err)
		}
	}

	logging.Info("[SQLite] Opened database: %s", config.Path)
	return &SQLiteProvider{db: db, config: config}, nil
}

func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

func (s *SQLiteProvider) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates all tables and indexes.
func (s *SQLiteProvider) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range sqliteTables {
		if _, err := s.db.ExecContext(ctx, table.schema); err != nil {
			logging.Error("[SQLite] Error creating table %s: %v", table.name, err)
			return fmt.Errorf("create table %s: %w", table.name, err)
		}
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	logging.Debug("[SQLite] Database migration completed")
	return nil
}

// StoreDecision inserts one decision; re-storing the same ID is a no-op.
func (s *SQLiteProvider) StoreDecision(ctx context.Context, rec DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, created_at, source_ip, http_method, path, user_agent, attack_type, matched_categories, confidence,
			rule_severity, frequency_severity, policy_severity, final_severity, policy_state, engagement_count, status_code, delay_seconds, response_body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.Timestamp.UTC(), rec.SourceIP, rec.Method, rec.Path, rec.UserAgent, rec.AttackType, joinCategories(rec.Categories), rec.Confidence,
		rec.RuleSeverity, rec.FrequencySeverity, rec.PolicySeverity, rec.FinalSeverity, rec.State, rec.EngagementCount, rec.StatusCode, rec.DelaySeconds, rec.ResponseBody,
	)
	return err
}

// UpdateAttackerProfile folds a decision into its source's profile.
func (s *SQLiteProvider) UpdateAttackerProfile(ctx context.Context, rec DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attacker_profiles (source_ip, total_requests, attack_types, max_severity, first_seen, last_seen)
		 VALUES (?, 1, ?, ?, ?, ?)
		 ON CONFLICT(source_ip) DO UPDATE SET
			total_requests = total_requests + 1,
			attack_types = CASE
				WHEN ',' || attack_types || ',' LIKE '%,' || excluded.attack_types || ',%' THEN attack_types
				WHEN attack_types = '' THEN excluded.attack_types
				ELSE attack_types || ',' || excluded.attack_types
			END,
			max_severity = MAX(max_severity, excluded.max_severity),
			last_seen = excluded.last_seen`,
		rec.SourceIP, rec.AttackType, severityRank(rec.FinalSeverity), rec.Timestamp.UTC(), rec.Timestamp.UTC(),
	)
	return err
}

// RecordPathHit increments the persisted hit counter for rec.Path.
func (s *SQLiteProvider) RecordPathHit(ctx context.Context, rec DecisionRecord) error {
	if rec.Path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO path_hits (path, hits, last_severity, first_seen, last_seen)
		 VALUES (?, 1, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			hits = hits + 1,
			last_severity = excluded.last_severity,
			last_seen = excluded.last_seen`,
		rec.Path, rec.FinalSeverity, rec.Timestamp.UTC(), rec.Timestamp.UTC(),
	)
	return err
}

// GetRecentDecisions returns up to limit decisions, newest first.
func (s *SQLiteProvider) GetRecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source_ip, COALESCE(http_method, ''), COALESCE(path, ''), COALESCE(user_agent, ''),
			COALESCE(attack_type, ''), COALESCE(matched_categories, ''), confidence,
			COALESCE(rule_severity, ''), COALESCE(frequency_severity, ''), COALESCE(policy_severity, ''), final_severity,
			COALESCE(policy_state, ''), engagement_count, status_code, delay_seconds, COALESCE(response_body, '')
		 FROM decisions
		 ORDER BY created_at DESC
		 LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSeverityCounts returns the number of stored decisions per final severity.
func (s *SQLiteProvider) GetSeverityCounts(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT final_severity, COUNT(*) FROM decisions GROUP BY final_severity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeverityCounts(rows)
}

// GetAttackerProfiles returns the most active sources first.
func (s *SQLiteProvider) GetAttackerProfiles(ctx context.Context, limit int) ([]AttackerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_ip, total_requests, attack_types, max_severity, first_seen, last_seen
		 FROM attacker_profiles
		 ORDER BY total_requests DESC, last_seen DESC
		 LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// GetTopPaths returns the most probed paths first.
func (s *SQLiteProvider) GetTopPaths(ctx context.Context, limit int) ([]PathHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, hits, COALESCE(last_severity, ''), first_seen, last_seen
		 FROM path_hits
		 ORDER BY hits DESC, path ASC
		 LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPathHits(rows)
}

func (s *SQLiteProvider) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM decisions), (SELECT COUNT(*) FROM attacker_profiles), (SELECT COUNT(*) FROM path_hits)`,
	).Scan(&c.Decisions, &c.Attackers, &c.Paths)
	return c, err
}

const defaultQueryLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (DecisionRecord, error) {
	var rec DecisionRecord
	var categories string
	var ts time.Time
	err := row.Scan(&rec.ID, &ts, &rec.SourceIP, &rec.Method, &rec.Path, &rec.UserAgent,
		&rec.AttackType, &categories, &rec.Confidence,
		&rec.RuleSeverity, &rec.FrequencySeverity, &rec.PolicySeverity, &rec.FinalSeverity,
		&rec.State, &rec.EngagementCount, &rec.StatusCode, &rec.DelaySeconds, &rec.ResponseBody)
	if err != nil {
		return rec, err
	}
	rec.Timestamp = ts
	rec.Categories = splitList(categories)
	return rec, nil
}

func scanSeverityCounts(rows *sql.Rows) (map[string]int64, error) {
	counts := emptySeverityCounts()
	for rows.Next() {
		var severity string
		var n int64
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, err
		}
		counts[severity] = n
	}
	return counts, rows.Err()
}

func scanProfiles(rows *sql.Rows) ([]AttackerProfile, error) {
	var out []AttackerProfile
	for rows.Next() {
		var p AttackerProfile
		var types string
		var rank int
		if err := rows.Scan(&p.SourceIP, &p.TotalRequests, &types, &rank, &p.FirstSeen, &p.LastSeen); err != nil {
			return nil, err
		}
		p.AttackTypes = splitList(types)
		p.HighestSeverity = severityName(rank)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPathHits(rows *sql.Rows) ([]PathHit, error) {
	var out []PathHit
	for rows.Next() {
		var h PathHit
		if err := rows.Scan(&h.Path, &h.Hits, &h.LastSeverity, &h.FirstSeen, &h.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
