package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	model "task-assignment-api.com/task-assignment-api/internal/models"
)

// Filter is a compiled where-clause ready for gorm's Where.
type Filter struct {
	SQL  string
	Vars []any
}

func (f Filter) IsEmpty() bool {
	return f.SQL == ""
}

// ParseFilter compiles a JSON filter document such as
// {"completed":false,"deadline":{"$lt":"2026-01-01"}} against schema.
func ParseFilter(raw string, schema Schema) (Filter, error) {
	if strings.TrimSpace(raw) == "" {
		return Filter{}, nil
	}

	doc, err := decodeObject(raw)
	if err != nil {
		return Filter{}, apperrors.Malformed("Invalid where parameter", err)
	}

	sql, vars, err := compileDocument(doc, schema)
	if err != nil {
		return Filter{}, err
	}
	return Filter{SQL: sql, Vars: vars}, nil
}

func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return doc, nil
}

func compileDocument(doc map[string]any, schema Schema) (string, []any, error) {
	var (
		parts []string
		vars  []any
	)

	for _, key := range sortedKeys(doc) {
		value := doc[key]

		var (
			sql  string
			args []any
			err  error
		)
		switch {
		case key == "$and" || key == "$or":
			sql, args, err = compileLogical(key, value, schema)
		case strings.HasPrefix(key, "$"):
			err = apperrors.Malformed(fmt.Sprintf("Unsupported operator %q", key), nil)
		default:
			sql, args, err = compileField(key, value, schema)
		}
		if err != nil {
			return "", nil, err
		}

		parts = append(parts, sql)
		vars = append(vars, args...)
	}

	if len(parts) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(parts, " AND "), vars, nil
}

func compileLogical(op string, value any, schema Schema) (string, []any, error) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return "", nil, apperrors.Malformed(fmt.Sprintf("%s expects a non-empty array", op), nil)
	}

	var (
		parts []string
		vars  []any
	)
	for _, item := range items {
		doc, ok := item.(map[string]any)
		if !ok {
			return "", nil, apperrors.Malformed(fmt.Sprintf("%s expects an array of objects", op), nil)
		}
		sql, args, err := compileDocument(doc, schema)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		vars = append(vars, args...)
	}

	joiner := " AND "
	if op == "$or" {
		joiner = " OR "
	}
	return "(" + strings.Join(parts, joiner) + ")", vars, nil
}

func compileField(name string, value any, schema Schema) (string, []any, error) {
	field, err := schema.lookup(name)
	if err != nil {
		return "", nil, err
	}

	ops, isOperatorDoc := operatorDocument(value)
	if !isOperatorDoc {
		return compileOperator(field, name, "$eq", value)
	}

	var (
		parts []string
		vars  []any
	)
	for _, op := range sortedKeys(ops) {
		sql, args, err := compileOperator(field, name, op, ops[op])
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		vars = append(vars, args...)
	}
	return strings.Join(parts, " AND "), vars, nil
}

func operatorDocument(value any) (map[string]any, bool) {
	doc, ok := value.(map[string]any)
	if !ok || len(doc) == 0 {
		return nil, false
	}
	for key := range doc {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return doc, true
}

var comparisons = map[string]string{
	"$gt":  ">",
	"$gte": ">=",
	"$lt":  "<",
	"$lte": "<=",
}

func compileOperator(field Field, name, op string, value any) (string, []any, error) {
	switch op {
	case "$eq", "$ne":
		v, err := coerce(field, name, value)
		if err != nil {
			return "", nil, err
		}
		if field.Kind == KindStringSet {
			sql := fmt.Sprintf(field.Member, "= ?")
			if op == "$ne" {
				sql = "NOT " + sql
			}
			return sql, []any{v}, nil
		}
		if op == "$ne" {
			return field.Column + " <> ?", []any{v}, nil
		}
		return field.Column + " = ?", []any{v}, nil

	case "$gt", "$gte", "$lt", "$lte":
		if field.Kind == KindStringSet || field.Kind == KindBool {
			return "", nil, apperrors.Malformed(fmt.Sprintf("%s is not supported on %q", op, name), nil)
		}
		v, err := coerce(field, name, value)
		if err != nil {
			return "", nil, err
		}
		return field.Column + " " + comparisons[op] + " ?", []any{v}, nil

	case "$in", "$nin":
		items, ok := value.([]any)
		if !ok {
			return "", nil, apperrors.Malformed(fmt.Sprintf("%s on %q expects an array", op, name), nil)
		}
		if len(items) == 0 {
			if op == "$in" {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			v, err := coerce(field, name, item)
			if err != nil {
				return "", nil, err
			}
			values = append(values, v)
		}
		sql := field.Column + " IN ?"
		if field.Kind == KindStringSet {
			sql = fmt.Sprintf(field.Member, "IN ?")
		}
		if op == "$nin" {
			sql = "NOT (" + sql + ")"
		}
		return sql, []any{values}, nil
	}

	return "", nil, apperrors.Malformed(fmt.Sprintf("Unsupported operator %q", op), nil)
}

func coerce(field Field, name string, value any) (any, error) {
	mismatch := apperrors.Malformed(fmt.Sprintf("Invalid value for %q", name), nil)

	switch field.Kind {
	case KindString, KindStringSet:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case KindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case KindInt:
		if n, ok := value.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		}
	case KindTime:
		switch v := value.(type) {
		case string:
			if t, err := model.ParseTimestamp(v); err == nil {
				return t, nil
			}
		case json.Number:
			if ms, err := v.Int64(); err == nil {
				return time.UnixMilli(ms).UTC(), nil
			}
		}
	}
	return nil, mismatch
}

func sortedKeys(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
