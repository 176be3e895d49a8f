package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/pdesim/internal/config"
	"github.com/san-kum/pdesim/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st := New(dir)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })
	return st, dir
}

func outcome(model string, withSurface bool) *experiment.Outcome {
	out := &experiment.Outcome{
		Model:      model,
		Scheme:     "crank_nicolson",
		Value:      0.1045,
		Reference:  0.10450583572185568,
		Delta:      0.63,
		Gamma:      1.87,
		ImpliedVol: 0.2,
		Curves: []experiment.Curve{
			{Name: "regime_0", X: []float64{0, 0.5, 1}, Y: []float64{0, 0.01, 0.1}},
			{Name: "regime_1", X: []float64{0, 0.5, 1}, Y: []float64{0, 0.02, 0.2}},
		},
		Metrics: map[string]float64{"stability": 1, "min_value": math.Inf(1)},
		Elapsed: 1500 * time.Microsecond,
	}
	if withSurface {
		out.Surface = &experiment.Surface{
			XLabel: "tau", YLabel: "spot",
			X:      []float64{0, 0.1},
			Y:      []float64{0, 1.0 / 3, 2},
			Values: [][]float64{{0, 0, 1}, {0, 0.01, 1.005}},
		}
	}
	return out
}

func TestStoreSaveLoad(t *testing.T) {
	st, dir := newStore(t)
	cfg := config.DefaultConfig()

	runID, err := st.Save(cfg, outcome("regime_switching", true))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	for _, name := range []string{"metadata.json", "curves.csv", "surface.csv"} {
		_, err := os.Stat(filepath.Join(dir, runID, name))
		assert.NoError(t, err, name)
	}

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "regime_switching", meta.Model)
	assert.Equal(t, []string{"regime_0", "regime_1"}, meta.Curves)
	assert.Equal(t, 1.0, meta.Metrics["stability"])
	assert.NotContains(t, meta.Metrics, "min_value")
	assert.InDelta(t, 1.5, meta.ElapsedMS, 1e-9)
	require.NotNil(t, meta.Reference)
	assert.InDelta(t, 5.8e-6, meta.Error(), 1e-7)
	assert.Equal(t, cfg, meta.Config)

	curves, err := st.LoadCurves(runID)
	require.NoError(t, err)
	assert.Equal(t, outcome("", false).Curves, curves)

	sf, err := st.LoadSurface(runID)
	require.NoError(t, err)
	assert.Equal(t, outcome("", true).Surface, sf)
}

func TestStoreWithoutReferenceOrSurface(t *testing.T) {
	st, _ := newStore(t)
	out := outcome("american_put", false)
	out.Reference = math.NaN()

	runID, err := st.Save(config.DefaultConfig(), out)
	require.NoError(t, err)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Nil(t, meta.Reference)
	assert.True(t, math.IsNaN(meta.Error()))

	_, err = st.LoadSurface(runID)
	assert.True(t, errors.Is(err, os.ErrNotExist), "%v", err)
}

func TestStoreList(t *testing.T) {
	st, dir := newStore(t)

	runs, err := st.List("")
	require.NoError(t, err)
	assert.Empty(t, runs)

	a, err := st.Save(config.DefaultConfig(), outcome("black_scholes", false))
	require.NoError(t, err)
	b, err := st.Save(config.DefaultConfig(), outcome("heston", false))
	require.NoError(t, err)

	runs, err = st.List("")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{a, b}, ids)

	runs, err = st.List("heston")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, b, runs[0].ID)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, a)))
	runs, err = st.List("")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStoreRequiresInit(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Save(config.DefaultConfig(), outcome("black_scholes", false))
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = st.List("")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestExport(t *testing.T) {
	st, _ := newStore(t)
	runID, err := st.Save(config.DefaultConfig(), outcome("black_scholes", true))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, runID))
	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, runID, data.Run.ID)
	assert.Len(t, data.Curves, 2)
	require.NotNil(t, data.Surface)
	assert.Equal(t, "spot", data.Surface.YLabel)

	buf.Reset()
	require.NoError(t, st.ExportCSV(&buf, runID))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"regime_0_x", "regime_0", "regime_1_x", "regime_1"}, records[0])
	assert.Equal(t, []string{"1", "0.1", "1", "0.2"}, records[3])
}

type failingCloser struct{ err error }

func (c failingCloser) Close() error { return c.err }

func TestCloseFileReportsCloseError(t *testing.T) {
	errClose, errWrite := errors.New("close"), errors.New("write")

	var err error
	closeFile(failingCloser{errClose}, &err)
	assert.ErrorIs(t, err, errClose)

	err = errWrite
	closeFile(failingCloser{errClose}, &err)
	assert.ErrorIs(t, err, errWrite)

	err = nil
	closeFile(failingCloser{}, &err)
	assert.NoError(t, err)
}

func TestWritersCloseTheirFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")
	require.NoError(t, writeJSON(path, map[string]float64{"price": 1.5}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 1.5}`, string(data))

	path = filepath.Join(dir, "rows.csv")
	require.NoError(t, writeCSV(path, []string{"x", "y"}, func(w *csv.Writer) error {
		return w.Write([]string{"1", "2"})
	}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x,y\n1,2\n", string(data))

	assert.Error(t, writeJSON(filepath.Join(dir, "missing", "meta.json"), 1))
	assert.Error(t, writeCSV(filepath.Join(dir, "missing", "rows.csv"), nil, nil))
}
