package query

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

// Projection keeps or drops fields of rendered documents. _id stays unless
// it is excluded explicitly.
type Projection struct {
	fields    map[string]bool
	inclusive bool
	dropID    bool
}

func ParseProjection(raw string, schema Schema) (*Projection, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	doc, err := decodeObject(raw)
	if err != nil {
		return nil, apperrors.Malformed("Invalid select parameter", err)
	}
	if len(doc) == 0 {
		return nil, nil
	}

	p := &Projection{fields: make(map[string]bool)}
	mode := 0
	keepID := false
	for _, name := range sortedKeys(doc) {
		keep, err := projectionFlag(doc[name])
		if err != nil {
			return nil, apperrors.Malformed(fmt.Sprintf("Invalid select value for %q", name), err)
		}
		if name == "id" {
			name = "_id"
		}
		if _, ok := schema.Fields[name]; !ok {
			return nil, apperrors.Malformed(fmt.Sprintf("Unknown field %q", name), nil)
		}

		if name == "_id" {
			p.dropID = !keep
			keepID = keep
			continue
		}

		want := -1
		if keep {
			want = 1
		}
		if mode != 0 && mode != want {
			return nil, apperrors.Malformed("Cannot mix inclusion and exclusion in select", nil)
		}
		mode = want
		p.fields[name] = true
	}
	// {"_id":1} alone selects only the identifier.
	p.inclusive = mode == 1 || (mode == 0 && keepID)
	return p, nil
}

func projectionFlag(v any) (bool, error) {
	switch f := v.(type) {
	case bool:
		return f, nil
	case json.Number:
		switch f.String() {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("use 1/0 or true/false")
}

func (p *Projection) keeps(name string) bool {
	if name == "_id" {
		return !p.dropID
	}
	if p.inclusive {
		return p.fields[name]
	}
	return !p.fields[name]
}

// Apply renders each document through its JSON form and keeps the selected
// keys.
func Apply[T any](p *Projection, docs []T) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		var full map[string]any
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, err
		}

		projected := make(map[string]any, len(full))
		for k, v := range full {
			if p.keeps(k) {
				projected[k] = v
			}
		}
		out = append(out, projected)
	}
	return out, nil
}
