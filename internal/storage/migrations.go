package storage

const postgresMigrationSQL = `
CREATE TABLE IF NOT EXISTS staking_records (
    token_address   TEXT PRIMARY KEY,
    staking_address TEXT NOT NULL,
    display_name    TEXT NOT NULL,
    project_name    TEXT NOT NULL DEFAULT '',
    chain_name      TEXT NOT NULL DEFAULT '',
    is_stablecoin   BOOLEAN NOT NULL DEFAULT false,
    categories      TEXT[] NOT NULL DEFAULT '{}',
    logo_url        TEXT NOT NULL DEFAULT '',
    apy             NUMERIC NOT NULL,
    tvl             NUMERIC NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const sqliteMigrationSQL = `
CREATE TABLE IF NOT EXISTS staking_records (
    token_address   TEXT PRIMARY KEY,
    staking_address TEXT NOT NULL,
    display_name    TEXT NOT NULL,
    project_name    TEXT NOT NULL DEFAULT '',
    chain_name      TEXT NOT NULL DEFAULT '',
    is_stablecoin   INTEGER NOT NULL DEFAULT 0,
    categories      TEXT NOT NULL DEFAULT '[]',
    logo_url        TEXT NOT NULL DEFAULT '',
    apy             TEXT NOT NULL,
    tvl             TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
`
