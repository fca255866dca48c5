package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RatingOp is a rating filter comparison operator.
type RatingOp string

const (
	RatingGTE RatingOp = "gte"
	RatingLT  RatingOp = "lt"
)

// RatingFilter is either empty (no filter) or an operator plus threshold.
// The server receives it as a hint; the client re-applies it to whatever
// page the server returned.
type RatingFilter struct {
	Op    RatingOp
	Value float64
}

// ParseRatingFilter parses "gte:X" / "lt:X". An empty string yields the
// zero filter.
func ParseRatingFilter(s string) (RatingFilter, error) {
	if s == "" {
		return RatingFilter{}, nil
	}
	op, raw, ok := strings.Cut(s, ":")
	if !ok {
		return RatingFilter{}, fmt.Errorf("invalid rating filter %q: expected op:value", s)
	}
	if op != string(RatingGTE) && op != string(RatingLT) {
		return RatingFilter{}, fmt.Errorf("invalid rating filter operator %q", op)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return RatingFilter{}, fmt.Errorf("invalid rating filter threshold %q: %w", raw, err)
	}
	return RatingFilter{Op: RatingOp(op), Value: value}, nil
}

// IsZero reports whether no filter is set.
func (f RatingFilter) IsZero() bool {
	return f.Op == ""
}

// Matches reports whether a product rating passes the filter. The zero
// filter matches everything.
func (f RatingFilter) Matches(rating float64) bool {
	switch f.Op {
	case RatingGTE:
		return rating >= f.Value
	case RatingLT:
		return rating < f.Value
	default:
		return true
	}
}

func (f RatingFilter) String() string {
	if f.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%s", f.Op, strconv.FormatFloat(f.Value, 'f', -1, 64))
}

// Query parameterizes one catalog fetch. It is a transient value object and
// is never persisted.
type Query struct {
	Search   string
	Category string
	MaxPrice float64
	Rating   RatingFilter
	Page     int
	Limit    int
}

// DefaultPageSize is the catalog page size used when a query does not set one.
const DefaultPageSize = 12

// Normalize fills in page and limit defaults.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	return q
}

// Values encodes the server-recognized parameters. Empty filters are
// omitted; page and limit are always sent.
func (q Query) Values() url.Values {
	q = q.Normalize()
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.MaxPrice > 0 {
		v.Set("price_lt", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if !q.Rating.IsZero() {
		v.Set("rating", q.Rating.String())
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// Key returns the canonical cache key for this parameter set.
func (q Query) Key() string {
	return q.Values().Encode()
}
