package database

import (
	"strings"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
)

type tableSchema struct {
	name   string
	schema string
}

var sqliteTables = []tableSchema{
	{
		name: "decisions",
		schema: `CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			source_ip TEXT NOT NULL,
			http_method TEXT,
			path TEXT,
			user_agent TEXT,
			attack_type TEXT,
			matched_categories TEXT,
			confidence REAL DEFAULT 0.0,
			rule_severity TEXT,
			frequency_severity TEXT,
			policy_severity TEXT,
			final_severity TEXT NOT NULL,
			policy_state TEXT,
			engagement_count INTEGER DEFAULT 0,
			status_code INTEGER,
			delay_seconds REAL,
			response_body TEXT
		)`,
	},
	{
		name: "attacker_profiles",
		schema: `CREATE TABLE IF NOT EXISTS attacker_profiles (
			source_ip TEXT PRIMARY KEY,
			total_requests INTEGER DEFAULT 0,
			attack_types TEXT DEFAULT '',
			max_severity INTEGER DEFAULT 0,
			first_seen TIMESTAMP NOT NULL,
			last_seen TIMESTAMP NOT NULL
		)`,
	},
	{
		name: "path_hits",
		schema: `CREATE TABLE IF NOT EXISTS path_hits (
			path TEXT PRIMARY KEY,
			hits INTEGER DEFAULT 0,
			last_severity TEXT,
			first_seen TIMESTAMP NOT NULL,
			last_seen TIMESTAMP NOT NULL
		)`,
	},
}

var postgresTables = []tableSchema{
	{
		name: "decisions",
		schema: `CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			source_ip TEXT NOT NULL,
			http_method TEXT,
			path TEXT,
			user_agent TEXT,
			attack_type TEXT,
			matched_categories TEXT,
			confidence DOUBLE PRECISION DEFAULT 0.0,
			rule_severity TEXT,
			frequency_severity TEXT,
			policy_severity TEXT,
			final_severity TEXT NOT NULL,
			policy_state TEXT,
			engagement_count INTEGER DEFAULT 0,
			status_code INTEGER,
			delay_seconds DOUBLE PRECISION,
			response_body TEXT
		)`,
	},
	{
		name: "attacker_profiles",
		schema: `CREATE TABLE IF NOT EXISTS attacker_profiles (
			source_ip TEXT PRIMARY KEY,
			total_requests BIGINT DEFAULT 0,
			attack_types TEXT DEFAULT '',
			max_severity INTEGER DEFAULT 0,
			first_seen TIMESTAMPTZ NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL
		)`,
	},
	{
		name: "path_hits",
		schema: `CREATE TABLE IF NOT EXISTS path_hits (
			path TEXT PRIMARY KEY,
			hits BIGINT DEFAULT 0,
			last_severity TEXT,
			first_seen TIMESTAMPTZ NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL
		)`,
	},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_source_ip ON decisions(source_ip)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_final_severity ON decisions(final_severity)`,
	`CREATE INDEX IF NOT EXISTS idx_path_hits_hits ON path_hits(hits)`,
}

func joinCategories(categories []string) string {
	return strings.Join(categories, ",")
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}

func severityRank(value string) int {
	s, err := detection.ParseSeverity(value)
	if err != nil {
		return 0
	}
	return int(s)
}

func severityName(rank int) string {
	s := detection.Severity(rank)
	if !s.Valid() {
		return detection.SeverityLow.String()
	}
	return s.String()
}

func emptySeverityCounts() map[string]int64 {
	counts := make(map[string]int64, len(detection.Severities))
	for _, s := range detection.Severities {
		counts[s.String()] = 0
	}
	return counts
}
