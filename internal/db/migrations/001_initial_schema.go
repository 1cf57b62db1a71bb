package migrations

// InitialSchema creates the initial database schema
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		-- Enable TimescaleDB extension
		CREATE EXTENSION IF NOT EXISTS timescaledb;

		-- Create nmea_errors hypertable
		CREATE TABLE IF NOT EXISTS nmea_errors (
			time TIMESTAMPTZ NOT NULL,
			source TEXT NOT NULL,
			kind TEXT NOT NULL,
			message TEXT,
			raw TEXT
		);

		-- Create hypertable
		SELECT create_hypertable('nmea_errors', 'time');

		-- Create indexes
		CREATE INDEX IF NOT EXISTS idx_nmea_errors_source ON nmea_errors (source);
		CREATE INDEX IF NOT EXISTS idx_nmea_errors_kind ON nmea_errors (kind);

		-- Create ingest_sessions table
		CREATE TABLE IF NOT EXISTS ingest_sessions (
			session_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ,
			sentences BIGINT NOT NULL DEFAULT 0,
			errors BIGINT NOT NULL DEFAULT 0
		);

		-- Create indexes for ingest_sessions
		CREATE INDEX IF NOT EXISTS idx_ingest_sessions_source ON ingest_sessions (source);
		CREATE INDEX IF NOT EXISTS idx_ingest_sessions_started_at ON ingest_sessions (started_at);

		-- Create statistics table
		CREATE TABLE IF NOT EXISTS system_stats (
			time TIMESTAMPTZ NOT NULL,
			total_sentences BIGINT NOT NULL,
			parsed_sentences BIGINT NOT NULL,
			failed_sentences BIGINT NOT NULL,
			checksum_failures BIGINT NOT NULL,
			buffer_overflows BIGINT NOT NULL,
			reconnects BIGINT NOT NULL,
			snapshots_emitted BIGINT NOT NULL,
			sentence_types BIGINT[] NOT NULL,
			uptime_seconds BIGINT NOT NULL
		);

		-- Create hypertable for statistics
		SELECT create_hypertable('system_stats', 'time');

		-- Create index for statistics
		CREATE INDEX IF NOT EXISTS idx_system_stats_time ON system_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS system_stats;
		DROP TABLE IF EXISTS ingest_sessions;
		DROP TABLE IF EXISTS nmea_errors;
	`,
}
