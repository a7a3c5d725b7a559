package api

import (
	"net/http"
	"strconv"
)

type PaginationMeta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListResponse is the envelope of every paginated endpoint.
type ListResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// parsePagination normalizes limit/offset query params.
// limit=50, offset=0. limit capped at 100, minimum 1.
// offset min 0
func parsePagination(limit, offset *int) (int64, int64) {
	l := int64(50)
	o := int64(0)
	if limit != nil {
		l = int64(*limit)
	}
	if offset != nil {
		o = int64(*offset)
	}
	if l > 100 {
		l = 100
	}
	if l < 1 {
		l = 1
	}
	if o < 0 {
		o = 0
	}
	return l, o
}

// paginationFromQuery reads ?limit and ?offset. Values that are not
// integers are rejected rather than silently defaulted.
func paginationFromQuery(r *http.Request) (int64, int64, *ErrorBuilder) {
	var (
		limit, offset *int
		details       []ErrorDetail
	)
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, ErrorDetail{Field: "limit", Message: "must be an integer"})
		}
		limit = &n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, ErrorDetail{Field: "offset", Message: "must be an integer"})
		}
		offset = &n
	}
	if len(details) > 0 {
		return 0, 0, ValidationErr("Invalid pagination parameters", details)
	}
	l, o := parsePagination(limit, offset)
	return l, o, nil
}

func buildPaginationMeta(total, limit, offset int64) PaginationMeta {
	return PaginationMeta{
		Total:   int(total),
		Limit:   int(limit),
		Offset:  int(offset),
		HasMore: offset < total-limit,
	}
}

// listOf keeps empty pages as [] in JSON.
func listOf[T any](items []T, total, limit, offset int64) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Meta: buildPaginationMeta(total, limit, offset)}
}
