package db

const schema = `
CREATE TABLE IF NOT EXISTS users (
    address    TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS debates (
    id                TEXT PRIMARY KEY,
    topic             TEXT NOT NULL,
    sides             TEXT NOT NULL, -- JSON array of position descriptions
    funding           TEXT NOT NULL, -- decimal ETH amount as string
    action            TEXT NOT NULL,
    creator_address   TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'active'
                      CHECK(status IN ('active','ended','settling','settled','failed')),
    message_threshold INTEGER NOT NULL,
    created_at        DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_debates_status ON debates(status);

CREATE TABLE IF NOT EXISTS messages (
    id             TEXT PRIMARY KEY,
    debate_id      TEXT NOT NULL REFERENCES debates(id),
    author_address TEXT NOT NULL,
    author_name    TEXT NOT NULL,
    body           TEXT NOT NULL,
    stance         INTEGER, -- index into sides, NULL if unstated
    created_at     DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_messages_debate ON messages(debate_id, created_at);

CREATE TABLE IF NOT EXISTS jurors (
    debate_id TEXT NOT NULL REFERENCES debates(id),
    juror_id  INTEGER NOT NULL,
    persona   TEXT NOT NULL,
    PRIMARY KEY (debate_id, juror_id)
);

CREATE TABLE IF NOT EXISTS juror_results (
    id         TEXT PRIMARY KEY,
    debate_id  TEXT NOT NULL REFERENCES debates(id),
    juror_id   INTEGER NOT NULL,
    message_id TEXT NOT NULL REFERENCES messages(id),
    decision   INTEGER, -- side index, NULL = undecided
    reasoning  TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_juror_results_debate ON juror_results(debate_id, juror_id, created_at);
CREATE INDEX IF NOT EXISTS idx_juror_results_message ON juror_results(message_id);

CREATE TABLE IF NOT EXISTS wallets (
    debate_id     TEXT PRIMARY KEY REFERENCES debates(id),
    agent_address TEXT NOT NULL,
    vault_address TEXT NOT NULL,
    vault_id      TEXT NOT NULL,
    created_at    DATETIME DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS settlements (
    debate_id    TEXT PRIMARY KEY REFERENCES debates(id),
    step         TEXT NOT NULL DEFAULT 'pending'
                 CHECK(step IN ('pending','vault_verified','contract_deployed','minted','action_executed','completed','failed')),
    nft_contract TEXT NOT NULL DEFAULT '',
    summary      TEXT NOT NULL DEFAULT '',
    tally        TEXT NOT NULL DEFAULT '{}', -- JSON vote tally
    mints        TEXT NOT NULL DEFAULT '[]', -- JSON per-recipient outcomes
    action_log   TEXT NOT NULL DEFAULT '',
    failed_step  TEXT NOT NULL DEFAULT '',
    failure      TEXT NOT NULL DEFAULT '',
    created_at   DATETIME DEFAULT (datetime('now')),
    updated_at   DATETIME DEFAULT (datetime('now'))
);
`
