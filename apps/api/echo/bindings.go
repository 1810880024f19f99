package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/somo-lms/somo/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the ?ordering= query param. Fields end up concatenated into
// ORDER BY clauses, so anything not in the allowed list is dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !fieldAllowed(field, allowed) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func fieldAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if f == field {
			return true
		}
	}
	return false
}

// Paging binds ?page=&limit= query params. Zero values are normalized
// downstream by core.NewPagination.
type Paging struct {
	Page  int
	Limit int
}

func (p *Paging) Bind(ctx echo.Context) {
	if v, err := strconv.Atoi(ctx.QueryParam("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil {
		p.Limit = v
	}
}
