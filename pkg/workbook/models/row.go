package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Row maps column ID to cell value. On the wire the keys are decimal
// strings ("0", "1", ...).
type Row map[int]string

// NewRow returns a row with an empty cell for each of n columns.
func NewRow(n int) Row {
	row := make(Row, n)
	for i := 0; i < n; i++ {
		row[i] = ""
	}
	return row
}

// UnmarshalJSON accepts any scalar cell value and coerces it to a string.
// null becomes "".
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	row := make(Row, len(raw))
	for key, v := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("row key %q is not a column id", key)
		}
		row[id] = CellString(v)
	}
	*r = row
	return nil
}

// CellString converts an arbitrary value to its cell representation.
func CellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
