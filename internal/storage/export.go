package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/san-kum/pdesim/internal/experiment"
)

// ExportData is a run with everything it saved, as one JSON document.
type ExportData struct {
	Run     *RunMetadata        `json:"run"`
	Curves  []experiment.Curve  `json:"curves"`
	Surface *experiment.Surface `json:"surface,omitempty"`
}

func (s *Store) exportData(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	curves, err := s.LoadCurves(runID)
	if err != nil {
		return nil, err
	}
	data := &ExportData{Run: meta, Curves: curves}
	if meta.Surface != nil {
		if data.Surface, err = s.LoadSurface(runID); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return data, nil
}

func (s *Store) ExportJSON(w io.Writer, runID string) error {
	data, err := s.exportData(runID)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes the curves of a run side by side, one x and one y column
// per curve. Shorter curves leave their cells empty.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	curves, err := s.LoadCurves(runID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := make([]string, 0, 2*len(curves))
	rows := 0
	for _, c := range curves {
		header = append(header, c.Name+"_x", c.Name)
		rows = max(rows, len(c.X))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		row := make([]string, 0, len(header))
		for _, c := range curves {
			if i < len(c.X) {
				row = append(row, formatFloat(c.X[i]), formatFloat(c.Y[i]))
			} else {
				row = append(row, "", "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
