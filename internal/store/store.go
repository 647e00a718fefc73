package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/awaistahir/pvsizer/internal/climate"
	"github.com/awaistahir/pvsizer/internal/engine"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Store handles persistent storage using SQLite
type Store struct {
	db *sql.DB
}

// PanelEntry is a user-defined panel
type PanelEntry struct {
	ID        string           `json:"id"`
	Spec      engine.PanelSpec `json:"spec"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// InverterEntry is a user-defined inverter
type InverterEntry struct {
	ID        string              `json:"id"`
	Spec      engine.InverterSpec `json:"spec"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Run is a saved design run: its input and the assembled package
type Run struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"created_at"`
	Input     engine.DesignInput `json:"input"`
	Package   engine.Package     `json:"package"`
}

// RunSummary is a listing row for saved runs
type RunSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	OK        bool      `json:"ok"`
	AllGreen  bool      `json:"all_green"`
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates the database schema
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS panels (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		spec TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inverters (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		spec TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS design_runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		ok INTEGER NOT NULL,
		all_green INTEGER NOT NULL,
		input TEXT NOT NULL,
		package TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS climate_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		years INTEGER NOT NULL,
		temps TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		UNIQUE(latitude, longitude, years)
	);

	CREATE INDEX IF NOT EXISTS idx_design_runs_created ON design_runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SavePanel saves or updates a panel
func (s *Store) SavePanel(id string, spec engine.PanelSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encoding panel: %w", err)
	}

	query := `INSERT OR REPLACE INTO panels (id, model, spec, updated_at) VALUES (?, ?, ?, ?)`
	_, err = s.db.Exec(query, id, spec.Model, string(specJSON), formatTime(time.Now()))
	return err
}

// GetPanel retrieves a panel by ID
func (s *Store) GetPanel(id string) (*PanelEntry, error) {
	var p PanelEntry
	var specJSON, updated string

	err := s.db.QueryRow(`SELECT id, spec, updated_at FROM panels WHERE id = ?`, id).Scan(&p.ID, &specJSON, &updated)
	if err != nil {
		return nil, notFound(err, "panel", id)
	}
	if err := json.Unmarshal([]byte(specJSON), &p.Spec); err != nil {
		return nil, fmt.Errorf("decoding panel %q: %w", id, err)
	}
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// GetPanels retrieves all panels ordered by ID
func (s *Store) GetPanels() ([]*PanelEntry, error) {
	rows, err := s.db.Query(`SELECT id, spec, updated_at FROM panels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	panels := []*PanelEntry{}
	for rows.Next() {
		var p PanelEntry
		var specJSON, updated string
		if err := rows.Scan(&p.ID, &specJSON, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(specJSON), &p.Spec); err != nil {
			return nil, fmt.Errorf("decoding panel %q: %w", p.ID, err)
		}
		p.UpdatedAt = parseTime(updated)
		panels = append(panels, &p)
	}
	return panels, rows.Err()
}

// DeletePanel deletes a panel by ID
func (s *Store) DeletePanel(id string) error {
	return s.deleteByID("panels", "panel", id)
}

// SaveInverter saves or updates an inverter
func (s *Store) SaveInverter(id string, spec engine.InverterSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encoding inverter: %w", err)
	}

	query := `INSERT OR REPLACE INTO inverters (id, model, spec, updated_at) VALUES (?, ?, ?, ?)`
	_, err = s.db.Exec(query, id, spec.Model, string(specJSON), formatTime(time.Now()))
	return err
}

// GetInverter retrieves an inverter by ID
func (s *Store) GetInverter(id string) (*InverterEntry, error) {
	var inv InverterEntry
	var specJSON, updated string

	err := s.db.QueryRow(`SELECT id, spec, updated_at FROM inverters WHERE id = ?`, id).Scan(&inv.ID, &specJSON, &updated)
	if err != nil {
		return nil, notFound(err, "inverter", id)
	}
	if err := json.Unmarshal([]byte(specJSON), &inv.Spec); err != nil {
		return nil, fmt.Errorf("decoding inverter %q: %w", id, err)
	}
	inv.UpdatedAt = parseTime(updated)
	return &inv, nil
}

// GetInverters retrieves all inverters ordered by ID
func (s *Store) GetInverters() ([]*InverterEntry, error) {
	rows, err := s.db.Query(`SELECT id, spec, updated_at FROM inverters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inverters := []*InverterEntry{}
	for rows.Next() {
		var inv InverterEntry
		var specJSON, updated string
		if err := rows.Scan(&inv.ID, &specJSON, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(specJSON), &inv.Spec); err != nil {
			return nil, fmt.Errorf("decoding inverter %q: %w", inv.ID, err)
		}
		inv.UpdatedAt = parseTime(updated)
		inverters = append(inverters, &inv)
	}
	return inverters, rows.Err()
}

// DeleteInverter deletes an inverter by ID
func (s *Store) DeleteInverter(id string) error {
	return s.deleteByID("inverters", "inverter", id)
}

// SaveRun stores a design run, assigning an ID and timestamp when unset
func (s *Store) SaveRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	inputJSON, err := json.Marshal(r.Input)
	if err != nil {
		return fmt.Errorf("encoding run input: %w", err)
	}
	pkgJSON, err := json.Marshal(r.Package)
	if err != nil {
		return fmt.Errorf("encoding run package: %w", err)
	}

	query := `INSERT OR REPLACE INTO design_runs (id, name, ok, all_green, input, package, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, r.ID, r.Name, boolToInt(r.Package.OK), boolToInt(r.Package.AllGreen),
		string(inputJSON), string(pkgJSON), formatTime(r.CreatedAt))
	return err
}

// GetRun retrieves a saved run by ID
func (s *Store) GetRun(id string) (*Run, error) {
	var r Run
	var inputJSON, pkgJSON, created string

	query := `SELECT id, name, input, package, created_at FROM design_runs WHERE id = ?`
	err := s.db.QueryRow(query, id).Scan(&r.ID, &r.Name, &inputJSON, &pkgJSON, &created)
	if err != nil {
		return nil, notFound(err, "run", id)
	}
	if err := json.Unmarshal([]byte(inputJSON), &r.Input); err != nil {
		return nil, fmt.Errorf("decoding run input: %w", err)
	}
	if err := json.Unmarshal([]byte(pkgJSON), &r.Package); err != nil {
		return nil, fmt.Errorf("decoding run package: %w", err)
	}
	r.CreatedAt = parseTime(created)
	return &r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, name, ok, all_green, created_at FROM design_runs
		ORDER BY created_at DESC, id LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var okInt, greenInt int
		var created string
		if err := rows.Scan(&r.ID, &r.Name, &okInt, &greenInt, &created); err != nil {
			return nil, err
		}
		r.OK = okInt == 1
		r.AllGreen = greenInt == 1
		r.CreatedAt = parseTime(created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a saved run by ID
func (s *Store) DeleteRun(id string) error {
	return s.deleteByID("design_runs", "run", id)
}

// CacheClimate stores derived design temperatures for a site
func (s *Store) CacheClimate(lat, lon float64, years int, t climate.Temperatures) error {
	tempsJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding temperatures: %w", err)
	}

	query := `INSERT OR REPLACE INTO climate_cache (latitude, longitude, years, temps, fetched_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, roundCoord(lat), roundCoord(lon), years, string(tempsJSON), formatTime(time.Now()))
	return err
}

// GetCachedClimate retrieves cached design temperatures for a site
func (s *Store) GetCachedClimate(lat, lon float64, years int) (*climate.Temperatures, error) {
	query := `SELECT temps FROM climate_cache WHERE latitude = ? AND longitude = ? AND years = ?`

	var tempsJSON string
	err := s.db.QueryRow(query, roundCoord(lat), roundCoord(lon), years).Scan(&tempsJSON)
	if err != nil {
		return nil, notFound(err, "climate", fmt.Sprintf("%.4f,%.4f", lat, lon))
	}

	var t climate.Temperatures
	if err := json.Unmarshal([]byte(tempsJSON), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) deleteByID(table, kind, id string) error {
	res, err := s.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return err
}

// timeLayout is fixed-width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// roundCoord keeps cache keys stable at ~10 m resolution
func roundCoord(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
