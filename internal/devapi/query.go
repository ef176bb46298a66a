package devapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// reservedParams are query parameters that are not column filters.
var reservedParams = map[string]bool{
	"select":      true,
	"order":       true,
	"limit":       true,
	"offset":      true,
	"or":          true,
	"on_conflict": true,
	"columns":     true,
}

// clause is a SQL boolean expression with its bind arguments.
type clause struct {
	sql  string
	args []any
}

// query is a parsed PostgREST read request.
type query struct {
	where  []clause
	order  []string
	limit  int // -1 = none
	offset int
}

func (q query) whereSQL() (string, []any) {
	if len(q.where) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(q.where))
	var args []any
	for _, c := range q.where {
		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func parseQuery(t *table, v url.Values) (query, error) {
	q := query{limit: -1}
	for key, vals := range v {
		if reservedParams[key] {
			continue
		}
		col, ok := t.column(key)
		if !ok {
			return q, unknownColumn(t, key)
		}
		for _, expr := range vals {
			c, err := parseFilter(col, expr)
			if err != nil {
				return q, err
			}
			q.where = append(q.where, c)
		}
	}
	if raw := v.Get("or"); raw != "" {
		c, err := parseOr(t, raw)
		if err != nil {
			return q, err
		}
		q.where = append(q.where, c)
	}
	if raw := v.Get("order"); raw != "" {
		order, err := parseOrder(t, raw)
		if err != nil {
			return q, err
		}
		q.order = order
	}
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, badRequest("PGRST100", "invalid limit "+strconv.Quote(raw))
		}
		q.limit = n
	}
	if raw := v.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, badRequest("PGRST100", "invalid offset "+strconv.Quote(raw))
		}
		q.offset = n
	}
	return q, nil
}

func unknownColumn(t *table, name string) *apiError {
	return badRequest("42703", fmt.Sprintf("column %s.%s does not exist", t.name, name))
}

// parseFilter turns "op.value" (optionally "not.op.value") into SQL.
func parseFilter(col column, expr string) (clause, error) {
	negate := false
	if rest, ok := strings.CutPrefix(expr, "not."); ok {
		negate = true
		expr = rest
	}
	op, val, ok := strings.Cut(expr, ".")
	if !ok {
		return clause{}, badRequest("PGRST100", fmt.Sprintf("failed to parse filter (%s)", expr))
	}
	c, err := buildFilter(col, op, val)
	if err != nil {
		return clause{}, err
	}
	if negate {
		c.sql = "NOT (" + c.sql + ")"
	}
	return c, nil
}

func buildFilter(col column, op, val string) (clause, error) {
	name := quoteIdent(col.name)
	switch op {
	case "eq", "neq", "gt", "gte", "lt", "lte":
		arg, err := filterArg(col, val)
		if err != nil {
			return clause{}, err
		}
		sym := map[string]string{"eq": "=", "neq": "<>", "gt": ">", "gte": ">=", "lt": "<", "lte": "<="}[op]
		return clause{sql: name + " " + sym + " ?", args: []any{arg}}, nil
	case "like", "ilike":
		pattern := strings.ReplaceAll(val, "*", "%")
		if op == "ilike" {
			return clause{sql: "lower(" + name + ") LIKE lower(?)", args: []any{pattern}}, nil
		}
		return clause{sql: name + " LIKE ?", args: []any{pattern}}, nil
	case "in":
		items := splitList(strings.TrimSuffix(strings.TrimPrefix(val, "("), ")"))
		if len(items) == 0 {
			return clause{sql: "0"}, nil
		}
		args := make([]any, 0, len(items))
		for _, it := range items {
			arg, err := filterArg(col, it)
			if err != nil {
				return clause{}, err
			}
			args = append(args, arg)
		}
		return clause{sql: name + " IN (" + placeholders(len(args)) + ")", args: args}, nil
	case "is":
		switch strings.ToLower(val) {
		case "null":
			return clause{sql: name + " IS NULL"}, nil
		case "true":
			return clause{sql: name + " = 1"}, nil
		case "false":
			return clause{sql: name + " = 0"}, nil
		}
	case "cs":
		if col.kind != colJSON {
			return clause{}, badRequest("42883", fmt.Sprintf("operator does not exist: %s @> unknown", col.name))
		}
		items := splitList(strings.TrimSuffix(strings.TrimPrefix(val, "{"), "}"))
		parts := make([]string, 0, len(items))
		args := make([]any, 0, len(items))
		for _, it := range items {
			parts = append(parts, "EXISTS (SELECT 1 FROM json_each("+name+") WHERE value = ?)")
			args = append(args, it)
		}
		if len(parts) == 0 {
			return clause{sql: "1"}, nil
		}
		return clause{sql: strings.Join(parts, " AND "), args: args}, nil
	}
	return clause{}, badRequest("PGRST100", fmt.Sprintf("failed to parse filter (%s.%s)", op, val))
}

func filterArg(col column, val string) (any, error) {
	switch col.kind {
	case colInt:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, badRequest("22P02", fmt.Sprintf("invalid input syntax for type integer: %q", val))
		}
		return n, nil
	case colBool:
		switch strings.ToLower(val) {
		case "true", "t", "1":
			return true, nil
		case "false", "f", "0":
			return false, nil
		}
		return nil, badRequest("22P02", fmt.Sprintf("invalid input syntax for type boolean: %q", val))
	default:
		return val, nil
	}
}

// parseOr handles or=(col.op.val,col.op.val).
func parseOr(t *table, raw string) (clause, error) {
	inner := strings.TrimSpace(raw)
	if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
		return clause{}, badRequest("PGRST100", "failed to parse logic tree ("+raw+")")
	}
	inner = inner[1 : len(inner)-1]
	var parts []string
	var args []any
	for _, cond := range splitTopLevel(inner) {
		name, expr, ok := strings.Cut(cond, ".")
		if !ok {
			return clause{}, badRequest("PGRST100", "failed to parse logic tree ("+raw+")")
		}
		col, found := t.column(name)
		if !found {
			return clause{}, unknownColumn(t, name)
		}
		c, err := parseFilter(col, expr)
		if err != nil {
			return clause{}, err
		}
		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}
	if len(parts) == 0 {
		return clause{sql: "1"}, nil
	}
	return clause{sql: "(" + strings.Join(parts, " OR ") + ")", args: args}, nil
}

func parseOrder(t *table, raw string) ([]string, error) {
	var out []string
	for _, term := range strings.Split(raw, ",") {
		segs := strings.Split(strings.TrimSpace(term), ".")
		col, ok := t.column(segs[0])
		if !ok {
			return nil, unknownColumn(t, segs[0])
		}
		expr := quoteIdent(col.name)
		for _, mod := range segs[1:] {
			switch mod {
			case "asc":
				expr += " ASC"
			case "desc":
				expr += " DESC"
			case "nullsfirst":
				expr += " NULLS FIRST"
			case "nullslast":
				expr += " NULLS LAST"
			default:
				return nil, badRequest("PGRST100", "failed to parse order ("+raw+")")
			}
		}
		out = append(out, expr)
	}
	return out, nil
}

// splitTopLevel splits on commas outside parentheses and double quotes.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	quoted := false
	for i, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '(' || r == '{':
			depth++
		case r == ')' || r == '}':
			depth--
		case r == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		out = append(out, last)
	}
	return out
}

// splitList splits a PostgREST list literal and unquotes its items.
func splitList(s string) []string {
	var out []string
	for _, it := range splitTopLevel(s) {
		if uq, err := strconv.Unquote(it); err == nil {
			it = uq
		}
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
