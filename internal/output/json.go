package output

import (
	"encoding/json"

	"github.com/tutorlink/tutorlink/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type jsonReport struct {
	Results []core.Result `json:"results"`
}

// FormatResults renders results as a {"results": [...]} document, the same
// body the batch endpoint returns.
func (f *JSONFormatter) FormatResults(results []core.Result) (string, error) {
	if results == nil {
		results = []core.Result{}
	}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(jsonReport{Results: results}, "", "  ")
	} else {
		data, err = json.Marshal(jsonReport{Results: results})
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
