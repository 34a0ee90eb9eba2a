package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"nickandperla.net/rpn/internal/state"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed store. Everything lives in one database
// file, so a single path replaces the four JSON files.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens or creates a SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS registers (
			idx INTEGER PRIMARY KEY,
			value REAL NOT NULL
		);
		CREATE TABLE IF NOT EXISTS simvars (
			prefix TEXT NOT NULL,
			key TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (prefix, key)
		);
		CREATE TABLE IF NOT EXISTS functions (
			pos INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			params INTEGER NOT NULL,
			body TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS history (
			pos INTEGER PRIMARY KEY,
			entry TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}

	version, err := s.getMetadata("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadata("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// LoadRegisters reads the register bank.
func (s *SQLite) LoadRegisters() (state.Registers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var regs state.Registers
	rows, err := s.db.Query("SELECT idx, value FROM registers")
	if err != nil {
		return regs, err
	}
	defer rows.Close()
	for rows.Next() {
		var idx int
		var value float64
		if err := rows.Scan(&idx, &value); err != nil {
			return regs, err
		}
		if state.InRange(idx) {
			regs[idx] = value
		}
	}
	return regs, rows.Err()
}

// SaveRegisters upserts every register slot.
func (s *SQLite) SaveRegisters(regs state.Registers) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range regs {
		_, err := s.db.Exec(`
			INSERT INTO registers (idx, value) VALUES (?, ?)
			ON CONFLICT(idx) DO UPDATE SET value = excluded.value
		`, i, v)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadSimVars reads every external variable.
func (s *SQLite) LoadSimVars() (state.SimVars, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim := state.SimVars{}
	rows, err := s.db.Query("SELECT prefix, key, value FROM simvars")
	if err != nil {
		return sim, err
	}
	defer rows.Close()
	for rows.Next() {
		var prefix, key string
		var value float64
		if err := rows.Scan(&prefix, &key, &value); err != nil {
			return sim, err
		}
		sim.Set(prefix, key, value)
	}
	return sim, rows.Err()
}

// SaveSimVars replaces the external variable table.
func (s *SQLite) SaveSimVars(sim state.SimVars) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM simvars"); err != nil {
		return err
	}
	for prefix, inner := range sim {
		for key, value := range inner {
			_, err := s.db.Exec(
				"INSERT INTO simvars (prefix, key, value) VALUES (?, ?, ?)",
				prefix, key, value,
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFunctions reads the function table in saved order.
func (s *SQLite) LoadFunctions() (state.Functions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT name, params, body FROM functions ORDER BY pos")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var funcs state.Functions
	for rows.Next() {
		var fn state.Function
		if err := rows.Scan(&fn.Name, &fn.Params, &fn.Body); err != nil {
			return nil, err
		}
		funcs = append(funcs, fn)
	}
	return funcs, rows.Err()
}

// SaveFunctions replaces the function table, keeping order.
func (s *SQLite) SaveFunctions(funcs state.Functions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM functions"); err != nil {
		return err
	}
	for i, fn := range funcs {
		_, err := s.db.Exec(
			"INSERT INTO functions (pos, name, params, body) VALUES (?, ?, ?, ?)",
			i, fn.Name, fn.Params, fn.Body,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadHistory reads previous result stacks, most recent first.
// Entries that fail to decode are skipped.
func (s *SQLite) LoadHistory() (state.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT entry FROM history ORDER BY pos")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hist state.History
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, err
		}
		var stack []float64
		if err := json.Unmarshal([]byte(entry), &stack); err != nil {
			continue
		}
		hist = append(hist, stack)
	}
	return hist, rows.Err()
}

// SaveHistory replaces the history table, trimmed to HistoryDepth.
func (s *SQLite) SaveHistory(hist state.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(hist) > state.HistoryDepth {
		hist = hist[:state.HistoryDepth]
	}
	if _, err := s.db.Exec("DELETE FROM history"); err != nil {
		return err
	}
	for i, stack := range hist {
		if stack == nil {
			stack = []float64{}
		}
		entry, err := json.Marshal(stack)
		if err != nil {
			return err
		}
		_, err = s.db.Exec("INSERT INTO history (pos, entry) VALUES (?, ?)", i, string(entry))
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// getMetadata retrieves a metadata value by key, "" when unset.
func (s *SQLite) getMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// setMetadata stores a metadata value by key.
func (s *SQLite) setMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
