package emergency

// Schema creates the key/value table backing the local storage slots.
const Schema = `
CREATE TABLE IF NOT EXISTS local_storage (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// PostsKey is the slot holding the JSON list of offline-created posts.
const PostsKey = "veilo_emergency_posts"

// idPrefix marks locally generated post ids.
const idPrefix = "emergency_"
