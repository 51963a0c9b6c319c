package store

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    filename    TEXT NOT NULL,
    report_path TEXT NOT NULL DEFAULT '',
    time_column TEXT NOT NULL DEFAULT '',
    samples     INTEGER NOT NULL DEFAULT 0,
    channels    INTEGER NOT NULL DEFAULT 0,
    pulses      INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC);`

const insertRunSQL = `
INSERT INTO runs (id,
                  filename,
                  report_path,
                  time_column,
                  samples,
                  channels,
                  pulses,
                  status,
                  error,
                  started_at,
                  finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRunSQL = `
SELECT
    id,
    filename,
    report_path,
    time_column,
    samples,
    channels,
    pulses,
    status,
    error,
    started_at,
    finished_at
FROM runs
WHERE
    id = ?`

const selectRunsSQL = `
SELECT
    id,
    filename,
    report_path,
    time_column,
    samples,
    channels,
    pulses,
    status,
    error,
    started_at,
    finished_at
FROM runs
ORDER BY started_at DESC
LIMIT ?`
