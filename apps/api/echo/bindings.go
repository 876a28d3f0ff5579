package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

var (
	orderingParam    = "ordering"
	contextObjectKey = "object"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
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
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Period is a `from`/`to` date range (YYYY-MM-DD, both optional).
type Period struct {
	From string `json:"from" query:"from" validate:"omitempty,date"`
	To   string `json:"to" query:"to" validate:"omitempty,date"`
}

func (p *Period) Bind(ctx echo.Context) {
	p.From = core.CleanString(ctx.QueryParam("from"))
	p.To = core.CleanString(ctx.QueryParam("to"))
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)
