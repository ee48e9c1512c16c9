package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/san-kum/roverdyn/internal/storage"
	"github.com/san-kum/roverdyn/internal/sweep"
)

// WriteCSV writes a run in the long format used on disk.
func WriteCSV(w io.Writer, run *storage.Run) error {
	return storage.WriteResultsCSV(w, run.Results)
}

// WriteSurfaceCSV writes the speed matrix: one row per slope, one column per
// Crr, with the axis values in the first row and column.
func WriteSurfaceCSV(w io.Writer, s *sweep.Surface) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(s.Crrs)+1)
	header = append(header, "slope\\crr")
	for _, c := range s.Crrs {
		header = append(header, formatFloat(c))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, row := range s.Speeds() {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, formatFloat(s.Slopes[i]))
		for _, v := range row {
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
