package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

type SortField struct {
	Column string
	Desc   bool
}

// ParseSort reads {"deadline":1,"name":-1}. Key order is significant, so the
// object is walked token by token instead of decoded into a map.
func ParseSort(raw string, schema Schema) ([]SortField, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	fields, err := parseSort(raw, schema)
	if err != nil {
		var appErr *apperrors.Exception
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Malformed("Invalid sort parameter", err)
	}
	return fields, nil
}

func parseSort(raw string, schema Schema) ([]SortField, error) {
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var fields []SortField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name := tok.(string)

		var direction any
		if err := dec.Decode(&direction); err != nil {
			return nil, err
		}

		field, err := schema.lookup(name)
		if err != nil {
			return nil, err
		}
		if field.Kind == KindStringSet {
			return nil, apperrors.Malformed(fmt.Sprintf("Cannot sort on %q", name), nil)
		}

		desc, err := sortDirection(direction)
		if err != nil {
			return nil, apperrors.Malformed(fmt.Sprintf("Invalid sort direction for %q", name), err)
		}
		fields = append(fields, SortField{Column: field.Column, Desc: desc})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func sortDirection(v any) (bool, error) {
	switch d := v.(type) {
	case json.Number:
		switch d.String() {
		case "1":
			return false, nil
		case "-1":
			return true, nil
		}
	case string:
		switch strings.ToLower(d) {
		case "asc", "ascending":
			return false, nil
		case "desc", "descending":
			return true, nil
		}
	}
	return false, fmt.Errorf("unsupported direction %v", v)
}
