package devapi

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// writableValues validates a request row against t and converts JSON values
// to driver values.
func writableValues(t *table, row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		col, ok := t.column(k)
		if !ok || col.readOnly {
			return nil, badRequest("PGRST204", fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", k, t.name))
		}
		dv, err := inValue(col, v)
		if err != nil {
			return nil, err
		}
		out[k] = dv
	}
	return out, nil
}

func inValue(col column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	invalid := func(typ string) error {
		return badRequest("22P02", fmt.Sprintf("invalid input syntax for type %s: %v", typ, v))
	}
	switch col.kind {
	case colInt:
		switch n := v.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, invalid("integer")
			}
			return i, nil
		case string:
			i, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, invalid("integer")
			}
			return i, nil
		}
		return nil, invalid("integer")
	case colBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, invalid("boolean")
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, invalid("text")
	}
}

// outValue converts a scanned sqlite value to its JSON form.
func outValue(col column, v any) any {
	if v == nil {
		return nil
	}
	switch col.kind {
	case colBool:
		switch b := v.(type) {
		case int64:
			return b != 0
		case bool:
			return b
		}
	case colInt:
		if n, ok := v.(int64); ok {
			return n
		}
	case colJSON:
		switch s := v.(type) {
		case string:
			return json.RawMessage(s)
		case []byte:
			return json.RawMessage(append([]byte(nil), s...))
		}
	default:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	}
	return v
}
