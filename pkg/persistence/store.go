// Package persistence provides the broker's durable record of terminals,
// services, and service endpoints, backed by SQLite through
// modernc.org/sqlite (a CGo-free driver, so the broker binary stays a
// single static executable). Every record is scoped to a "slice": the
// db.slice a network's configuration names, letting several networks
// share one database file without their tables colliding.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// TerminalRecord is one row of the terminals table.
type TerminalRecord struct {
	Slice  string
	ID     string
	Name   string
	Config string
}

// ServiceRecord is one row of the services table. Intent records whether
// the operator asked for this service to exist; RemoveService drops the
// row outright, but a daemon crash between Define and explicit removal
// leaves Intent as the only signal Reconcile has to tell a
// still-wanted service apart from an abandoned one.
type ServiceRecord struct {
	Slice  string
	ID     int64
	Intent bool
}

// EndpointRecord is one row of the endpoints table: one circuit
// attachment point bound to a service.
type EndpointRecord struct {
	ServiceID  int64
	TerminalID string
	Label      int
	Metering   string
	Shaping    string
}

// Store wraps a single SQLite database holding every configured
// network's terminals/services/endpoints tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening persistence store %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema for %s: %w", path, err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB returns the underlying *sql.DB, for health checks that need to ping
// it directly.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS terminals (
	slice  TEXT NOT NULL,
	id     TEXT NOT NULL,
	name   TEXT NOT NULL,
	config TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (slice, id)
);
CREATE TABLE IF NOT EXISTS services (
	slice  TEXT NOT NULL,
	id     INTEGER NOT NULL,
	intent INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (slice, id)
);
CREATE TABLE IF NOT EXISTS endpoints (
	service_id  INTEGER NOT NULL,
	terminal_id TEXT NOT NULL,
	label       INTEGER NOT NULL,
	metering    TEXT NOT NULL DEFAULT '',
	shaping     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_endpoints_service ON endpoints(service_id);
`
	_, err := s.db.Exec(schema)
	return err
}

// PutTerminal inserts or updates a terminal record.
func (s *Store) PutTerminal(rec TerminalRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO terminals (slice, id, name, config) VALUES (?, ?, ?, ?)
		ON CONFLICT(slice, id) DO UPDATE SET name = excluded.name, config = excluded.config`,
		rec.Slice, rec.ID, rec.Name, rec.Config)
	return err
}

// RemoveTerminal deletes a terminal record.
func (s *Store) RemoveTerminal(slice, id string) error {
	_, err := s.db.Exec(`DELETE FROM terminals WHERE slice = ? AND id = ?`, slice, id)
	return err
}

// Terminals returns every terminal persisted under slice.
func (s *Store) Terminals(slice string) ([]TerminalRecord, error) {
	rows, err := s.db.Query(`SELECT slice, id, name, config FROM terminals WHERE slice = ?`, slice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TerminalRecord
	for rows.Next() {
		var r TerminalRecord
		if err := rows.Scan(&r.Slice, &r.ID, &r.Name, &r.Config); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PutService inserts or updates a service record.
func (s *Store) PutService(rec ServiceRecord) error {
	intent := 0
	if rec.Intent {
		intent = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO services (slice, id, intent) VALUES (?, ?, ?)
		ON CONFLICT(slice, id) DO UPDATE SET intent = excluded.intent`,
		rec.Slice, rec.ID, intent)
	return err
}

// RemoveService deletes a service record and its endpoints.
func (s *Store) RemoveService(slice string, id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM endpoints WHERE service_id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM services WHERE slice = ? AND id = ?`, slice, id); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Services returns every service persisted under slice.
func (s *Store) Services(slice string) ([]ServiceRecord, error) {
	rows, err := s.db.Query(`SELECT slice, id, intent FROM services WHERE slice = ?`, slice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceRecord
	for rows.Next() {
		var r ServiceRecord
		var intent int
		if err := rows.Scan(&r.Slice, &r.ID, &intent); err != nil {
			return nil, err
		}
		r.Intent = intent != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// PutEndpoint appends an endpoint record for a service.
func (s *Store) PutEndpoint(rec EndpointRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO endpoints (service_id, terminal_id, label, metering, shaping) VALUES (?, ?, ?, ?, ?)`,
		rec.ServiceID, rec.TerminalID, rec.Label, rec.Metering, rec.Shaping)
	return err
}

// Endpoints returns every endpoint recorded for a service.
func (s *Store) Endpoints(serviceID int64) ([]EndpointRecord, error) {
	rows, err := s.db.Query(`
		SELECT service_id, terminal_id, label, metering, shaping FROM endpoints WHERE service_id = ?`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EndpointRecord
	for rows.Next() {
		var r EndpointRecord
		if err := rows.Scan(&r.ServiceID, &r.TerminalID, &r.Label, &r.Metering, &r.Shaping); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reconciled is what Reconcile returns for one slice: the terminals that
// should be restored, and the services (with their endpoints) that
// should be re-defined and re-activated, having survived the
// intent-only filter.
type Reconciled struct {
	Terminals []TerminalRecord
	Services  []ServiceRecord
	Endpoints map[int64][]EndpointRecord
}

// Reconcile loads a slice's persisted terminals and services at startup,
// dropping any service whose Intent is false and returning the rest
// along with their endpoints, so the caller can redefine and reactivate
// exactly the services that were wanted at the time of the last crash or
// restart.
func (s *Store) Reconcile(slice string) (*Reconciled, error) {
	terminals, err := s.Terminals(slice)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: loading terminals: %w", slice, err)
	}
	services, err := s.Services(slice)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: loading services: %w", slice, err)
	}

	var retained []ServiceRecord
	endpoints := make(map[int64][]EndpointRecord)
	for _, svc := range services {
		if !svc.Intent {
			if err := s.RemoveService(slice, svc.ID); err != nil {
				return nil, fmt.Errorf("reconcile %s: dropping abandoned service %d: %w", slice, svc.ID, err)
			}
			continue
		}
		eps, err := s.Endpoints(svc.ID)
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: loading endpoints for service %d: %w", slice, svc.ID, err)
		}
		endpoints[svc.ID] = eps
		retained = append(retained, svc)
	}

	return &Reconciled{Terminals: terminals, Services: retained, Endpoints: endpoints}, nil
}
