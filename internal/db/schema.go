package db

// WordsSchema holds the server-side word collection.
// AUTOINCREMENT keeps a high-water mark so deleted ids are never handed out again.
const WordsSchema = `
CREATE TABLE IF NOT EXISTS words (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    word TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// MirrorSchema holds client-side mirror slots, one serialized value per key.
const MirrorSchema = `
CREATE TABLE IF NOT EXISTS mirror (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`
