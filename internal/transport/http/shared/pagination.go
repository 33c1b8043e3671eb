package shared

import (
	"net/http"
	"strconv"

	"hrflow/internal/domain/workflow"
)

// ParsePagination reads limit and offset from the query and clamps them to
// bounds. Values that are not integers count as absent.
func ParsePagination(r *http.Request, bounds workflow.PageBounds) workflow.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return bounds.Clamp(limit, offset)
}
