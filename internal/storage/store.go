// Package storage keeps solved runs on disk. Each run gets a directory named
// by its id holding metadata.json, curves.csv and, for full results,
// surface.csv; a SQLite catalog indexes the runs by model and time.
package storage

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/san-kum/pdesim/internal/config"
	"github.com/san-kum/pdesim/internal/experiment"
)

const (
	catalogFile  = "catalog.db"
	metadataFile = "metadata.json"
	curvesFile   = "curves.csv"
	surfaceFile  = "surface.csv"
)

var ErrNotInitialized = errors.New("storage: store not initialized")

type Store struct {
	baseDir string
	db      *sql.DB
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the base directory and opens the catalog.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", filepath.Join(s.baseDir, catalogFile)+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		model TEXT NOT NULL,
		scheme TEXT NOT NULL,
		value REAL NOT NULL,
		reference REAL,
		elapsed_ms REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp DESC);
	`); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Scheme     string             `json:"scheme"`
	Timestamp  time.Time          `json:"timestamp"`
	Value      float64            `json:"value"`
	Reference  *float64           `json:"reference,omitempty"`
	Delta      float64            `json:"delta"`
	Gamma      float64            `json:"gamma"`
	ImpliedVol float64            `json:"implied_vol"`
	ElapsedMS  float64            `json:"elapsed_ms"`
	Metrics    map[string]float64 `json:"metrics"`
	Curves     []string           `json:"curves"`
	Surface    *SurfaceAxes       `json:"surface,omitempty"`
	Config     *config.Config     `json:"config"`
}

// SurfaceAxes names the axes of a stored surface.
type SurfaceAxes struct {
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
}

// Error is |value − reference|, NaN without a reference.
func (m *RunMetadata) Error() float64 {
	if m.Reference == nil {
		return math.NaN()
	}
	return math.Abs(m.Value - *m.Reference)
}

// finite drops values JSON cannot carry.
func finite(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func (s *Store) Save(cfg *config.Config, out *experiment.Outcome) (string, error) {
	if s.db == nil {
		return "", ErrNotInitialized
	}
	runID := uuid.New().String()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      out.Model,
		Scheme:     out.Scheme,
		Timestamp:  time.Now(),
		Value:      out.Value,
		Delta:      out.Delta,
		Gamma:      out.Gamma,
		ImpliedVol: out.ImpliedVol,
		ElapsedMS:  float64(out.Elapsed.Microseconds()) / 1e3,
		Metrics:    finite(out.Metrics),
		Config:     cfg,
	}
	if out.HasReference() {
		ref := out.Reference
		meta.Reference = &ref
	}
	for _, c := range out.Curves {
		meta.Curves = append(meta.Curves, c.Name)
	}
	if out.Surface != nil {
		meta.Surface = &SurfaceAxes{XLabel: out.Surface.XLabel, YLabel: out.Surface.YLabel}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCurves(filepath.Join(runDir, curvesFile), out.Curves); err != nil {
		return "", err
	}
	if out.Surface != nil {
		if err := writeSurface(filepath.Join(runDir, surfaceFile), out.Surface); err != nil {
			return "", err
		}
	}

	var ref sql.NullFloat64
	if meta.Reference != nil {
		ref = sql.NullFloat64{Float64: *meta.Reference, Valid: true}
	}
	if _, err := s.db.Exec(`
		INSERT INTO runs (id, timestamp, model, scheme, value, reference, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, meta.ID, meta.Timestamp, meta.Model, meta.Scheme, meta.Value, ref, meta.ElapsedMS); err != nil {
		return "", fmt.Errorf("failed to catalog run: %w", err)
	}
	glog.V(1).Infof("saved run %s (%s/%s)", runID, meta.Model, meta.Scheme)
	return runID, nil
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// closeFile reports the close error of a written file unless an earlier
// error is already set.
func closeFile(f io.Closer, err *error) {
	if cerr := f.Close(); *err == nil {
		*err = cerr
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func writeCSV(path string, header []string, rows func(w *csv.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeCurves(path string, curves []experiment.Curve) error {
	return writeCSV(path, []string{"curve", "x", "y"}, func(w *csv.Writer) error {
		for _, c := range curves {
			for i := range c.X {
				if err := w.Write([]string{c.Name, formatFloat(c.X[i]), formatFloat(c.Y[i])}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeSurface(path string, sf *experiment.Surface) error {
	return writeCSV(path, []string{sf.XLabel, sf.YLabel, "value"}, func(w *csv.Writer) error {
		for i, x := range sf.X {
			for j, y := range sf.Y {
				if err := w.Write([]string{formatFloat(x), formatFloat(y), formatFloat(sf.Values[i][j])}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// List returns the runs of model, newest first; an empty model lists all.
// Catalogued runs whose directory has gone are skipped.
func (s *Store) List(model string) ([]RunMetadata, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	query := `SELECT id FROM runs ORDER BY timestamp DESC, id`
	args := []any{}
	if model != "" {
		query = `SELECT id FROM runs WHERE model = ? ORDER BY timestamp DESC, id`
		args = append(args, model)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(ids))
	for _, id := range ids {
		meta, err := s.Load(id)
		if err != nil {
			glog.V(1).Infof("skipping run %s: %v", id, err)
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}
	return records[1:], nil
}

func parseFloats(record []string) ([]float64, error) {
	out := make([]float64, len(record))
	for i, s := range record {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// LoadCurves reads the curves of a run in the order they were saved.
func (s *Store) LoadCurves(runID string) ([]experiment.Curve, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, curvesFile))
	if err != nil {
		return nil, err
	}
	var curves []experiment.Curve
	for _, rec := range records {
		xy, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("run %s curves: %w", runID, err)
		}
		if len(curves) == 0 || curves[len(curves)-1].Name != rec[0] {
			curves = append(curves, experiment.Curve{Name: rec[0]})
		}
		c := &curves[len(curves)-1]
		c.X = append(c.X, xy[0])
		c.Y = append(c.Y, xy[1])
	}
	return curves, nil
}

// LoadSurface reads the surface of a full-results run. Runs without one
// return an error wrapping os.ErrNotExist.
func (s *Store) LoadSurface(runID string) (*experiment.Surface, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	records, err := readCSV(filepath.Join(s.baseDir, runID, surfaceFile))
	if err != nil {
		return nil, err
	}

	sf := &experiment.Surface{}
	if meta.Surface != nil {
		sf.XLabel, sf.YLabel = meta.Surface.XLabel, meta.Surface.YLabel
	}
	for _, rec := range records {
		v, err := parseFloats(rec)
		if err != nil {
			return nil, fmt.Errorf("run %s surface: %w", runID, err)
		}
		if len(sf.X) == 0 || sf.X[len(sf.X)-1] != v[0] {
			sf.X = append(sf.X, v[0])
			sf.Values = append(sf.Values, nil)
		}
		if len(sf.X) == 1 {
			sf.Y = append(sf.Y, v[1])
		}
		last := len(sf.Values) - 1
		sf.Values[last] = append(sf.Values[last], v[2])
	}
	for i, row := range sf.Values {
		if len(row) != len(sf.Y) {
			return nil, fmt.Errorf("run %s surface: row %d has %d values for %d columns", runID, i, len(row), len(sf.Y))
		}
	}
	return sf, nil
}
