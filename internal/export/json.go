package export

import (
	"encoding/json"
	"io"
	"math"

	"github.com/san-kum/roverdyn/internal/solver"
	"github.com/san-kum/roverdyn/internal/storage"
)

// ResultJSON is a solver.Result with NaN speeds encoded as null.
type ResultJSON struct {
	Slope    float64  `json:"slope"`
	Crr      float64  `json:"crr"`
	Omega    *float64 `json:"omega"`
	Speed    *float64 `json:"speed"`
	Feasible bool     `json:"feasible"`
}

type ExportData struct {
	Run     storage.RunMetadata `json:"run"`
	Results []ResultJSON        `json:"results"`
}

func toJSON(results []solver.Result) []ResultJSON {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	out := make([]ResultJSON, len(results))
	for i, r := range results {
		out[i] = ResultJSON{
			Slope:    r.Slope,
			Crr:      r.Crr,
			Omega:    opt(r.Omega),
			Speed:    opt(r.Speed),
			Feasible: r.Feasible,
		}
	}
	return out
}

func WriteJSON(w io.Writer, run *storage.Run) error {
	data := ExportData{
		Run:     run.Meta,
		Results: toJSON(run.Results),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
