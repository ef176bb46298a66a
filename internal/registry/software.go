package registry

import (
	"context"
	"log/slog"

	"rsd-cli/internal/model"
	"rsd-cli/internal/postgrest"
)

// SoftwareList reads one page of the software overview. A failed read is
// logged and yields an empty page so list views still render.
func SoftwareList(ctx context.Context, client *postgrest.Client, p postgrest.ListParams, logger *slog.Logger) postgrest.Page[model.SoftwareListItem] {
	page, err := client.ListPage(ctx, p)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "software list failed", "search", p.Search, "page", p.Page, "error", err)
		p = p.Normalize()
		return postgrest.Page[model.SoftwareListItem]{Items: []model.SoftwareListItem{}, Page: p.Page, Rows: p.Rows}
	}
	if page.Items == nil {
		page.Items = []model.SoftwareListItem{}
	}
	return page
}

// PageCount is the number of pages needed for count items.
func PageCount(count, rows int) int {
	if rows <= 0 || count <= 0 {
		return 0
	}
	return (count + rows - 1) / rows
}
