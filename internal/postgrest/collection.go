package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint describes one child-collection table.
type Endpoint struct {
	Table        string
	ParentColumn string
	IDColumn     string // default "id"
	OrderColumn  string // default "position"
	// Filters narrow reads, e.g. {"role": "eq.participating"}.
	Filters map[string]string
	// ReadOnly columns are decoded on reads but never sent on writes.
	ReadOnly []string
}

func (e Endpoint) idColumn() string {
	if e.IDColumn == "" {
		return "id"
	}
	return e.IDColumn
}

func (e Endpoint) orderColumn() string {
	if e.OrderColumn == "" {
		return "position"
	}
	return e.OrderColumn
}

// Identified is satisfied by every collection entity.
type Identified interface {
	ItemID() string
}

// Collection is the remote side of one child collection.
type Collection[T Identified] struct {
	client *Client
	ep     Endpoint
}

func NewCollection[T Identified](c *Client, ep Endpoint) *Collection[T] {
	return &Collection[T]{client: c, ep: ep}
}

func (c *Collection[T]) Endpoint() Endpoint { return c.ep }

// writeRow encodes item as a JSON object without the endpoint's read-only
// columns.
func (c *Collection[T]) writeRow(item T) (map[string]any, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	row := map[string]any{}
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	for _, col := range c.ep.ReadOnly {
		delete(row, col)
	}
	return row, nil
}

// List returns the parent's items in position order.
func (c *Collection[T]) List(ctx context.Context, parentID string) ([]T, error) {
	q := url.Values{}
	for col, f := range c.ep.Filters {
		q.Set(col, f)
	}
	q.Set(c.ep.ParentColumn, "eq."+parentID)
	q.Set("order", c.ep.orderColumn()+".asc")
	resp, err := c.client.do(ctx, request{
		op:     "list " + c.ep.Table,
		method: http.MethodGet,
		path:   c.ep.Table + "?" + q.Encode(),
	})
	if err != nil {
		return nil, err
	}
	return decodeRows[T]("list "+c.ep.Table, resp)
}

// Create inserts item and returns it with the server-assigned identity.
func (c *Collection[T]) Create(ctx context.Context, item T) MutationResult[T] {
	op := "create " + c.ep.Table
	row, err := c.writeRow(item)
	if err != nil {
		return fail[T](&Error{Op: op, Kind: ErrValidation, Message: fmt.Sprintf("encode payload: %v", err)})
	}
	resp, err := c.client.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   c.ep.Table,
		body:   row,
		prefer: []string{"return=representation"},
		auth:   true,
	})
	if err != nil {
		return fail[T](err)
	}
	rows, err := decodeRows[T](op, resp)
	if err != nil {
		return fail[T](err)
	}
	if len(rows) > 0 && rows[0].ItemID() != "" {
		return succeed(rows[0])
	}

	// Headers-only servers report the new row in Location: /table?id=eq.<id>
	id := idFromLocation(resp.header.Get("Location"), c.ep.idColumn())
	if id == "" {
		return fail[T](&Error{Op: op, Status: resp.status, Kind: ErrTransport, Message: "server did not report the created identity"})
	}
	created, err := withID(item, c.ep.idColumn(), id)
	if err != nil {
		return fail[T](&Error{Op: op, Status: resp.status, Kind: ErrTransport, Message: err.Error()})
	}
	return succeed(created)
}

// Update patches the row identified by item.ItemID(). A row that no longer
// exists is reported as ErrNotFound.
func (c *Collection[T]) Update(ctx context.Context, item T) MutationResult[T] {
	op := "update " + c.ep.Table
	id := item.ItemID()
	if id == "" {
		return fail[T](&Error{Op: op, Kind: ErrValidation, Message: "update requires a persisted item"})
	}
	row, err := c.writeRow(item)
	if err != nil {
		return fail[T](&Error{Op: op, Kind: ErrValidation, Message: fmt.Sprintf("encode payload: %v", err)})
	}
	q := url.Values{}
	q.Set(c.ep.idColumn(), "eq."+id)
	resp, err := c.client.do(ctx, request{
		op:     op,
		method: http.MethodPatch,
		path:   c.ep.Table + "?" + q.Encode(),
		body:   row,
		prefer: []string{"return=representation"},
		auth:   true,
	})
	if err != nil {
		return fail[T](err)
	}
	rows, err := decodeRows[T](op, resp)
	if err != nil {
		return fail[T](err)
	}
	if len(rows) == 0 {
		if resp.status == http.StatusNoContent {
			// return=representation was ignored; trust the request payload.
			return succeed(item)
		}
		return fail[T](&Error{Op: op, Status: http.StatusNotFound, Kind: ErrNotFound, Message: fmt.Sprintf("%s %s no longer exists", c.ep.Table, id)})
	}
	return succeed(rows[0])
}

// DeleteByIDs removes rows. Rows that are already gone count as deleted.
func (c *Collection[T]) DeleteByIDs(ctx context.Context, ids []string) MutationResult[struct{}] {
	op := "delete " + c.ep.Table
	if len(ids) == 0 {
		return succeed(struct{}{})
	}
	q := url.Values{}
	q.Set(c.ep.idColumn(), "in.("+strings.Join(ids, ",")+")")
	_, err := c.client.do(ctx, request{
		op:     op,
		method: http.MethodDelete,
		path:   c.ep.Table + "?" + q.Encode(),
		prefer: []string{"return=minimal"},
		auth:   true,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.client.logger.DebugContext(ctx, "delete target already gone", "table", c.ep.Table, "ids", ids)
			return succeed(struct{}{})
		}
		return fail[struct{}](err)
	}
	return succeed(struct{}{})
}

// Reposition writes the complete order of a parent's collection in a single
// bulk upsert, so the server applies all positions or none. items must carry
// their new positions. Each row is sent whole: the upsert is an INSERT ... ON
// CONFLICT DO UPDATE, and the insert half is checked against NOT NULL columns
// before the conflict is resolved.
func (c *Collection[T]) Reposition(ctx context.Context, parentID string, items []T) MutationResult[struct{}] {
	op := "reposition " + c.ep.Table
	if len(items) == 0 {
		return succeed(struct{}{})
	}
	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if it.ItemID() == "" {
			return fail[struct{}](&Error{Op: op, Kind: ErrValidation, Message: "reposition requires persisted items"})
		}
		row, err := c.writeRow(it)
		if err != nil {
			return fail[struct{}](&Error{Op: op, Kind: ErrValidation, Message: fmt.Sprintf("encode payload: %v", err)})
		}
		row[c.ep.ParentColumn] = parentID
		rows = append(rows, row)
	}
	q := url.Values{}
	q.Set("on_conflict", c.ep.idColumn())
	_, err := c.client.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   c.ep.Table + "?" + q.Encode(),
		body:   commonKeys(rows),
		prefer: []string{"resolution=merge-duplicates", "return=minimal"},
		auth:   true,
	})
	if err != nil {
		return fail[struct{}](err)
	}
	return succeed(struct{}{})
}

// commonKeys drops every key that is missing from at least one row. A bulk
// insert requires all objects to share the same keys.
func commonKeys(rows []map[string]any) []map[string]any {
	count := map[string]int{}
	for _, r := range rows {
		for k := range r {
			count[k]++
		}
	}
	for _, r := range rows {
		for k := range r {
			if count[k] != len(rows) {
				delete(r, k)
			}
		}
	}
	return rows
}

func idFromLocation(loc, idCol string) string {
	if strings.TrimSpace(loc) == "" {
		return ""
	}
	u, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	v := u.Query().Get(idCol)
	return strings.TrimPrefix(v, "eq.")
}

// withID sets the identity column on an arbitrary entity through its JSON form.
func withID[T any](item T, idCol, id string) (T, error) {
	var zero T
	b, err := json.Marshal(item)
	if err != nil {
		return zero, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return zero, err
	}
	fields[idCol] = id
	b, err = json.Marshal(fields)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}
