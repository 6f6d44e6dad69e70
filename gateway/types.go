package gateway

import (
	"encoding/base64"
	"time"

	"github.com/tomyedwab/asyncsql/conf"
	"github.com/tomyedwab/asyncsql/data"
)

// --- JSON structures for gateway clients ---

// ExecuteRequest carries the positional parameters of a statement. Binary
// values are base64 strings, times RFC 3339 strings and times of day
// "HH:MM:SS" strings.
type ExecuteRequest struct {
	Params []interface{} `json:"params,omitempty"`
}

// ExecuteResponse is returned once the statement has completed on a worker.
type ExecuteResponse struct {
	RequestID    string          `json:"request_id"`
	Columns      []string        `json:"columns,omitempty"`
	Rows         [][]interface{} `json:"rows,omitempty"`
	LastInsertID uint64          `json:"last_insert_id"`
	RowsAffected uint64          `json:"rows_affected"`
	Error        string          `json:"error,omitempty"`
	Code         string          `json:"code,omitempty"` // Backend error code
}

// StatementInfo describes a catalog entry.
type StatementInfo struct {
	Name    string              `json:"name"`
	SQL     string              `json:"sql"`
	Params  []conf.ColumnConfig `json:"params,omitempty"`
	Results []conf.ColumnConfig `json:"results,omitempty"`
}

type HealthResponse struct {
	State   string `json:"state"`
	Workers int    `json:"workers"`
	Pending int    `json:"pending"`
}

// encodeRow makes row values JSON friendly.
func encodeRow(row *data.Row) []interface{} {
	vals := row.Values()
	for i, val := range vals {
		switch v := val.(type) {
		case []byte:
			vals[i] = base64.StdEncoding.EncodeToString(v)
		case time.Time:
			if row.FieldType(i).Base() == data.Date {
				vals[i] = v.Format(data.DateLayout)
			} else {
				vals[i] = v.Format(time.RFC3339Nano)
			}
		case time.Duration:
			vals[i] = data.FormatTimeOfDay(v)
		}
	}
	return vals
}
