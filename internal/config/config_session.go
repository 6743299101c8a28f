package config

// SessionConfig configures the SQLite-backed session store (§4.7).
type SessionConfig struct {
	// DBPath is the path to the session database file. Load replaces an
	// empty path with data/sessions.db; sessions.Open itself opens an
	// in-memory database for an empty path (used by tests).
	DBPath string `yaml:"db_path"`
}
