package storage

// schema is the fixed five-table layout of a per-user database. Applying it
// is idempotent. Referential rules live in the schema, not in application
// code: deleting a deck cascades to its themes and flashcards, deleting a
// theme detaches its flashcards (theme_id set to NULL).
const schema = `
-- The single account row. Created with the database, never deleted on its own.
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT,
    avatar TEXT,
    bio TEXT,
    created_at TEXT NOT NULL
);

-- author_id intentionally has no FK: it always equals the session's user id.
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    cover_image TEXT,
    author_id TEXT NOT NULL,
    is_public INTEGER DEFAULT 0,
    tags TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS themes (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    cover_image TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (deck_id) REFERENCES decks (id) ON DELETE CASCADE
);

-- Media columns hold inline base64 payloads, not references.
CREATE TABLE IF NOT EXISTS flashcards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    theme_id TEXT,
    front_text TEXT NOT NULL,
    front_image TEXT,
    front_audio TEXT,
    front_additional_info TEXT,
    back_text TEXT NOT NULL,
    back_image TEXT,
    back_audio TEXT,
    back_additional_info TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (deck_id) REFERENCES decks (id) ON DELETE CASCADE,
    FOREIGN KEY (theme_id) REFERENCES themes (id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS user_settings (
    id INTEGER PRIMARY KEY,
    user_id TEXT NOT NULL,
    theme_preference TEXT DEFAULT 'light',
    language TEXT DEFAULT 'fr',
    study_reminders INTEGER DEFAULT 1,
    settings_json TEXT,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_decks_author ON decks (author_id);
CREATE INDEX IF NOT EXISTS idx_themes_deck ON themes (deck_id);
CREATE INDEX IF NOT EXISTS idx_flashcards_deck ON flashcards (deck_id);
CREATE INDEX IF NOT EXISTS idx_flashcards_theme ON flashcards (theme_id);
CREATE INDEX IF NOT EXISTS idx_user_settings_user ON user_settings (user_id);
`
