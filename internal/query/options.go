package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

// Options is the parsed form of the where/sort/select/skip/limit/count
// query parameters.
type Options struct {
	Filter     Filter
	Sort       []SortField
	Projection *Projection
	Skip       int
	Limit      *int
	Count      bool
}

func ParseOptions(values url.Values, schema Schema) (Options, error) {
	var (
		opts Options
		err  error
	)

	if opts.Filter, err = ParseFilter(values.Get("where"), schema); err != nil {
		return Options{}, err
	}
	if opts.Sort, err = ParseSort(values.Get("sort"), schema); err != nil {
		return Options{}, err
	}

	selectParam := values.Get("select")
	if selectParam == "" {
		selectParam = values.Get("filter")
	}
	if opts.Projection, err = ParseProjection(selectParam, schema); err != nil {
		return Options{}, err
	}

	if raw := values.Get("skip"); raw != "" {
		if opts.Skip, err = parseCount("skip", raw); err != nil {
			return Options{}, err
		}
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := parseCount("limit", raw)
		if err != nil {
			return Options{}, err
		}
		opts.Limit = &limit
	}

	opts.Count = values.Get("count") == "true"
	return opts, nil
}

func parseCount(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, apperrors.Malformed(fmt.Sprintf("Invalid %s parameter", name), err)
	}
	return n, nil
}

// Where applies only the filter; counts use it on their own.
func (o Options) Where() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if o.Filter.IsEmpty() {
			return db
		}
		return db.Where(o.Filter.SQL, o.Filter.Vars...)
	}
}

// Page applies filter, ordering, skip and limit. defaultLimit is used when
// no limit was given; zero means uncapped.
func (o Options) Page(defaultLimit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(o.Where())

		if len(o.Sort) == 0 {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "date_created"}})
		}
		for _, s := range o.Sort {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Column}, Desc: s.Desc})
		}
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})

		if o.Skip > 0 {
			db = db.Offset(o.Skip)
		}
		limit := defaultLimit
		if o.Limit != nil {
			limit = *o.Limit
		}
		if limit > 0 {
			db = db.Limit(limit)
		}
		return db
	}
}

// Window narrows a raw match count by an explicit skip and limit.
func (o Options) Window(total int64) int64 {
	n := total - int64(o.Skip)
	if n < 0 {
		n = 0
	}
	if o.Limit != nil && *o.Limit > 0 && n > int64(*o.Limit) {
		n = int64(*o.Limit)
	}
	return n
}
