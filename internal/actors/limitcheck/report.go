package limitcheck

import (
	"bytes"
	"encoding/json"
	"sort"
)

// violation is one failed rule for one stream.
type violation struct {
	Stream string `json:"stream"`
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

// report collects the violations found at one timestamp.
type report struct {
	Timestamp  float64     `json:"timestamp"`
	Violations []violation `json:"violations"`
}

// renderReport serializes a report deterministically: violations are
// ordered by stream, then rule, then detail.
func renderReport(rep report) ([]byte, error) {
	sort.Slice(rep.Violations, func(i, j int) bool {
		a, b := rep.Violations[i], rep.Violations[j]
		if a.Stream != b.Stream {
			return a.Stream < b.Stream
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Detail < b.Detail
	})
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
