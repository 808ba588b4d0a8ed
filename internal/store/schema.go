package store

const schema = `
CREATE TABLE IF NOT EXISTS birds (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT,
    first_seen    TEXT NOT NULL,
    last_seen     TEXT NOT NULL,
    total_visits  INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS visits (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    bird_id          INTEGER REFERENCES birds(id) ON DELETE SET NULL,
    feeder_id        TEXT NOT NULL,
    camera_id        TEXT NOT NULL,
    visit_time       TEXT NOT NULL,
    duration_seconds REAL,
    confidence       REAL,
    image_path       TEXT,
    created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visits_feeder_time ON visits(feeder_id, visit_time);
CREATE INDEX IF NOT EXISTS idx_visits_bird ON visits(bird_id);

CREATE TABLE IF NOT EXISTS alerts (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    feeder_id       TEXT NOT NULL,
    alert_type      TEXT NOT NULL,
    title           TEXT NOT NULL,
    message         TEXT NOT NULL,
    severity        TEXT NOT NULL DEFAULT 'medium',
    is_active       INTEGER NOT NULL DEFAULT 1,
    is_acknowledged INTEGER NOT NULL DEFAULT 0,
    acknowledged_at TEXT,
    acknowledged_by TEXT,
    visit_count     INTEGER,
    nectar_level    REAL,
    created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_feeder_active ON alerts(feeder_id, is_active);

CREATE TABLE IF NOT EXISTS summaries (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    summary_date       TEXT NOT NULL UNIQUE,
    title              TEXT NOT NULL,
    content            TEXT NOT NULL,
    total_visits       INTEGER NOT NULL DEFAULT 0,
    unique_birds       INTEGER NOT NULL DEFAULT 0,
    peak_hour          TEXT,
    avg_visit_duration REAL,
    model_used         TEXT,
    created_at         TEXT NOT NULL
);
`
