package migrations

var RetentionPolicies = &Migration{
	ID:   "002_retention_policies",
	Name: "002_retention_policies",
	UpSQL: `
	-- Set retention policy for nmea_errors (30 days)
	SELECT add_retention_policy('nmea_errors', INTERVAL '30 days');

	-- Set retention policy for system_stats (90 days)
	SELECT add_retention_policy('system_stats', INTERVAL '90 days');

	-- Create continuous aggregate for daily system stats
	CREATE MATERIALIZED VIEW IF NOT EXISTS system_stats_daily
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 day', time) AS day,
		SUM(total_sentences) AS total_sentences,
		SUM(parsed_sentences) AS parsed_sentences,
		SUM(failed_sentences) AS failed_sentences,
		SUM(checksum_failures) AS checksum_failures,
		SUM(buffer_overflows) AS buffer_overflows,
		SUM(reconnects) AS reconnects,
		SUM(snapshots_emitted) AS snapshots_emitted
	FROM system_stats
	GROUP BY day
	WITH NO DATA;

	-- Create continuous aggregate for hourly error counts
	CREATE MATERIALIZED VIEW IF NOT EXISTS nmea_errors_hourly
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 hour', time) AS hour,
		COUNT(*) AS error_count
	FROM nmea_errors
	GROUP BY hour
	WITH NO DATA;
	`,
	DownSQL: `
	DROP MATERIALIZED VIEW IF EXISTS system_stats_daily;
	DROP MATERIALIZED VIEW IF EXISTS nmea_errors_hourly;
	-- Remove retention policies
	SELECT remove_retention_policy('nmea_errors');
	SELECT remove_retention_policy('system_stats');
	`,
}
