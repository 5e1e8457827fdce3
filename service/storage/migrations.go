package storage

const schemaV1 = `
CREATE TABLE IF NOT EXISTS builds (
    build_id        INTEGER PRIMARY KEY AUTOINCREMENT,
    build_uuid      TEXT UNIQUE NOT NULL,
    program         TEXT NOT NULL,
    mode            TEXT NOT NULL,
    arch            TEXT NOT NULL,
    builder         TEXT,
    build_epoch     INTEGER,
    git_commit      TEXT,
    compiled        INTEGER DEFAULT 0,
    up_to_date      INTEGER DEFAULT 0,
    size_bytes      INTEGER DEFAULT 0,
    sha256          TEXT,
    duration_ms     INTEGER DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'ok',
    error           TEXT,
    tool_version    TEXT,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_builds_program_created
    ON builds(program, created_at);
CREATE INDEX IF NOT EXISTS idx_builds_created
    ON builds(created_at DESC);

CREATE TABLE IF NOT EXISTS installs (
    install_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    install_uuid    TEXT UNIQUE NOT NULL,
    program         TEXT NOT NULL,
    action          TEXT NOT NULL,
    staged          INTEGER NOT NULL DEFAULT 0,
    stage_dir       TEXT,
    warnings        INTEGER DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'ok',
    error           TEXT,
    tool_version    TEXT,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_installs_program_created
    ON installs(program, created_at);

CREATE TABLE IF NOT EXISTS install_steps (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    install_id      INTEGER NOT NULL,
    position        INTEGER NOT NULL,
    name            TEXT NOT NULL,
    status          TEXT NOT NULL,
    detail          TEXT,
    FOREIGN KEY (install_id) REFERENCES installs(install_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_install_steps_install ON install_steps(install_id);
`
