package report

import (
	jsoniter "github.com/json-iterator/go"
)

// shortForm is the compact shape printed to the terminal after a
// campaign finishes — a few headline numbers, not the full report.
type shortForm struct {
	Status        string `json:"status"`
	TotalLoops    int    `json:"total_loops"`
	TotalFailures int    `json:"total_failures"`
	MasterSeed    uint64 `json:"master_seed"`
}

// ShortFormJSON renders a one-line JSON summary of s for terminal
// output via jsoniter.Marshal rather than the standard library's
// encoding/json.
func ShortFormJSON(s Summary) (string, error) {
	sf := shortForm{
		Status:        s.Status,
		TotalLoops:    len(s.Loops),
		TotalFailures: s.TotalFailures,
		MasterSeed:    s.MasterSeed,
	}
	data, err := jsoniter.Marshal(&sf)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
