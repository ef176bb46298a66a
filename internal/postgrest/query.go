package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rsd-cli/internal/model"
)

const DefaultRows = 12

// RowsOptions are the page sizes a list page offers.
var RowsOptions = []int{12, 24, 48}

// ListParams are the user-facing controls of a list page.
type ListParams struct {
	Search   string
	Keywords []string
	Page     int // 0-based
	Rows     int
}

// ParseListParams reads list controls from URL-style query values. Unknown or
// malformed values fall back to defaults instead of failing.
func ParseListParams(v url.Values) ListParams {
	p := ListParams{
		Search: strings.TrimSpace(v.Get("search")),
		Rows:   DefaultRows,
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(v.Get("rows")); err == nil && validRows(n) {
		p.Rows = n
	}
	if raw := strings.TrimSpace(v.Get("keywords")); raw != "" {
		var kws []string
		if err := json.Unmarshal([]byte(raw), &kws); err == nil {
			for _, k := range kws {
				if k = strings.TrimSpace(k); k != "" {
					p.Keywords = append(p.Keywords, k)
				}
			}
		}
	}
	return p
}

func validRows(n int) bool {
	for _, r := range RowsOptions {
		if r == n {
			return true
		}
	}
	return false
}

// Normalize clamps the page and rows to allowed values.
func (p ListParams) Normalize() ListParams {
	if p.Page < 0 {
		p.Page = 0
	}
	if !validRows(p.Rows) {
		p.Rows = DefaultRows
	}
	return p
}

// ListURL re-derives the query string a list page links to. A changed search
// term starts again at the first page.
func ListURL(prev, next ListParams) string {
	next = next.Normalize()
	if next.Search != prev.Search {
		next.Page = 0
	}
	v := url.Values{}
	if next.Search != "" {
		v.Set("search", next.Search)
	}
	if len(next.Keywords) > 0 {
		b, _ := json.Marshal(next.Keywords)
		v.Set("keywords", string(b))
	}
	v.Set("page", strconv.Itoa(next.Page))
	v.Set("rows", strconv.Itoa(next.Rows))
	return "?" + v.Encode()
}

// sanitizeTerm drops characters that would break PostgREST filter syntax.
func sanitizeTerm(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', ',', '"', '\\', '*':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// SoftwareListQuery builds the software_search path for one page of results.
func SoftwareListQuery(p ListParams) string {
	p = p.Normalize()
	v := url.Values{}
	if q := sanitizeTerm(p.Search); q != "" {
		v.Set("or", fmt.Sprintf("(brand_name.ilike.*%s*,short_statement.ilike.*%s*)", q, q))
	}
	if len(p.Keywords) > 0 {
		quoted := make([]string, 0, len(p.Keywords))
		for _, k := range p.Keywords {
			if k = sanitizeTerm(k); k != "" {
				quoted = append(quoted, strconv.Quote(k))
			}
		}
		if len(quoted) > 0 {
			v.Set("keywords", "cs.{"+strings.Join(quoted, ",")+"}")
		}
	}
	v.Set("order", "mention_cnt.desc.nullslast,contributor_cnt.desc.nullslast,updated_at.desc.nullslast")
	v.Set("limit", strconv.Itoa(p.Rows))
	v.Set("offset", strconv.Itoa(p.Rows*p.Page))
	return "software_search?" + v.Encode()
}

// Page is one page of a counted list read.
type Page[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
	Page  int `json:"page"`
	Rows  int `json:"rows"`
}

// parseContentRange extracts the total from "0-11/123" or "*/0". An unknown
// total ("0-11/*") or a malformed header yields fallback.
func parseContentRange(h string, fallback int) int {
	_, total, ok := strings.Cut(strings.TrimSpace(h), "/")
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(total)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// ListPage reads one page of software with an exact total count.
func (c *Client) ListPage(ctx context.Context, p ListParams) (Page[model.SoftwareListItem], error) {
	p = p.Normalize()
	out := Page[model.SoftwareListItem]{Page: p.Page, Rows: p.Rows}
	resp, err := c.do(ctx, request{
		op:     "list software",
		method: http.MethodGet,
		path:   SoftwareListQuery(p),
		prefer: []string{"count=exact"},
	})
	if err != nil {
		return out, err
	}
	items, err := decodeRows[model.SoftwareListItem]("list software", resp)
	if err != nil {
		return out, err
	}
	out.Items = items
	out.Count = parseContentRange(resp.header.Get("Content-Range"), len(items))
	return out, nil
}

// Software reads a single software record by slug.
func (c *Client) Software(ctx context.Context, slug string) (model.Software, error) {
	op := "get software"
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.Software{}, &Error{Op: op, Kind: ErrValidation, Message: "slug is required"}
	}
	q := url.Values{}
	q.Set("slug", "eq."+slug)
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "software?" + q.Encode()})
	if err != nil {
		return model.Software{}, err
	}
	rows, err := decodeRows[model.Software](op, resp)
	if err != nil {
		return model.Software{}, err
	}
	if len(rows) == 0 {
		return model.Software{}, &Error{Op: op, Status: http.StatusNotFound, Kind: ErrNotFound, Message: fmt.Sprintf("software %q not found", slug)}
	}
	return rows[0], nil
}

// OrganisationNames maps registered organisation ids to their names. Ids the
// server does not know are left out.
func (c *Client) OrganisationNames(ctx context.Context, ids []string) (map[string]string, error) {
	op := "list organisation"
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := url.Values{}
	q.Set("select", "id,name")
	q.Set("id", "in.("+strings.Join(ids, ",")+")")
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "organisation?" + q.Encode()})
	if err != nil {
		return nil, err
	}
	type row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	rows, err := decodeRows[row](op, resp)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}
