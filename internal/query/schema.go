package query

import (
	"fmt"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

type FieldKind int

const (
	KindString FieldKind = iota
	KindBool
	KindInt
	KindTime
	// KindStringSet is a list held in a side table; Member is an SQL
	// predicate with a single %s slot for the comparison.
	KindStringSet
)

type Field struct {
	Column string
	Kind   FieldKind
	Member string
}

// Schema maps the public JSON field names of a resource to its columns.
type Schema struct {
	Fields map[string]Field
}

func (s Schema) lookup(name string) (Field, error) {
	if name == "id" {
		name = "_id"
	}
	f, ok := s.Fields[name]
	if !ok {
		return Field{}, apperrors.Malformed(fmt.Sprintf("Unknown field %q", name), nil)
	}
	return f, nil
}
