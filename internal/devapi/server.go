package devapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
)

const maxBodyBytes = 1 << 20

type Server struct {
	db     *sql.DB
	secret []byte
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(db *sql.DB, secret []byte, opts ...Option) *Server {
	s := &Server{db: db, secret: secret, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IssueToken signs a token this server accepts.
func (s *Server) IssueToken(account string, ttl time.Duration) (string, error) {
	return IssueToken(s.secret, account, ttl, s.now())
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Prefer", "Accept", "Range"},
		ExposedHeaders: []string{"Content-Range", "Location"},
		MaxAge:         600,
	})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc/{fn}", s.handleRPC)
	mux.HandleFunc("/{table}", s.handleTable)
	return newCORS().Handler(s.logRequests(mux))
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.InfoContext(ctx, "development api listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.DebugContext(r.Context(), "devapi request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", rec.status,
			"duration", time.Since(started),
		)
	})
}

type preferences struct {
	ret   string // representation | minimal | headers-only
	count bool
	merge bool
}

func parsePrefer(r *http.Request) preferences {
	var p preferences
	for _, h := range r.Header.Values("Prefer") {
		for _, part := range strings.Split(h, ",") {
			k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
			switch k {
			case "return":
				p.ret = v
			case "count":
				p.count = v == "exact"
			case "resolution":
				p.merge = v == "merge-duplicates"
			}
		}
	}
	return p
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("table")
	t, ok := tables[name]
	if !ok {
		writeError(w, newAPIError(http.StatusNotFound, "42P01", fmt.Sprintf("relation \"public.%s\" does not exist", name)))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		if !t.writable {
			writeError(w, newAPIError(http.StatusMethodNotAllowed, "42501", "permission denied for table "+t.name))
			return
		}
		if _, err := s.authenticate(r, t.name); err != nil {
			writeError(w, err)
			return
		}
	}

	var err error
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		err = s.handleSelect(w, r, t)
	case http.MethodPost:
		err = s.handleInsert(w, r, t)
	case http.MethodPatch:
		err = s.handleUpdate(w, r, t)
	case http.MethodDelete:
		err = s.handleDelete(w, r, t)
	default:
		err = newAPIError(http.StatusMethodNotAllowed, "PGRST117", "unsupported HTTP method "+r.Method)
	}
	if err != nil {
		if !isAPIError(err) {
			s.logger.WarnContext(r.Context(), "devapi query failed", "table", t.name, "method", r.Method, "error", err)
		}
		writeError(w, err)
	}
}

func isAPIError(err error) bool {
	var ae *apiError
	return errors.As(err, &ae)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, t *table) error {
	q, err := parseQuery(t, r.URL.Query())
	if err != nil {
		return err
	}
	rows, err := s.selectRows(r.Context(), s.db, t, q)
	if err != nil {
		return err
	}
	total := "*"
	if parsePrefer(r).count {
		n, err := s.count(r.Context(), t, q)
		if err != nil {
			return err
		}
		total = fmt.Sprint(n)
	}
	if len(rows) == 0 {
		w.Header().Set("Content-Range", "*/"+total)
	} else {
		w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%s", q.offset, q.offset+len(rows)-1, total))
	}
	return writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request, t *table) error {
	pref := parsePrefer(r)
	conflict := r.URL.Query().Get("on_conflict")
	if conflict != "" && conflict != "id" {
		return badRequest("42P10", "there is no unique or exclusion constraint matching the ON CONFLICT specification")
	}
	upsert := conflict == "id" && pref.merge

	payload, err := readRows(r)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(payload))
	for _, row := range payload {
		vals, err := writableValues(t, row)
		if err != nil {
			return err
		}
		id, _ := vals["id"].(string)
		if id == "" {
			id = uuid.NewString()
			vals["id"] = id
		}
		if upsert {
			err = upsertRow(r.Context(), tx, t, vals)
		} else {
			err = insertRow(r.Context(), tx, t, vals)
		}
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if pref.ret == "representation" {
		rows, err := s.rowsByID(r.Context(), t, ids)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusCreated, rows)
	}
	if len(ids) == 1 {
		w.Header().Set("Location", fmt.Sprintf("/%s?id=eq.%s", t.name, ids[0]))
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, t *table) error {
	q, err := parseQuery(t, r.URL.Query())
	if err != nil {
		return err
	}
	if len(q.where) == 0 {
		return badRequest("21000", "UPDATE requires a WHERE clause")
	}
	payload, err := readRows(r)
	if err != nil {
		return err
	}
	if len(payload) != 1 {
		return badRequest("PGRST102", "PATCH expects a single JSON object")
	}
	vals, err := writableValues(t, payload[0])
	if err != nil {
		return err
	}
	delete(vals, "id")

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ids, err := matchingIDs(r.Context(), tx, t, q)
	if err != nil {
		return err
	}
	if len(ids) > 0 && len(vals) > 0 {
		cols, args := assignments(vals)
		args = append(args, stringsToAny(ids)...)
		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id IN (%s)", quoteIdent(t.name), cols, placeholders(len(ids)))
		if _, err := tx.ExecContext(r.Context(), stmt, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if parsePrefer(r).ret == "representation" {
		rows, err := s.rowsByID(r.Context(), t, ids)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, rows)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, t *table) error {
	q, err := parseQuery(t, r.URL.Query())
	if err != nil {
		return err
	}
	if len(q.where) == 0 {
		return badRequest("21000", "DELETE requires a WHERE clause")
	}
	var before []map[string]any
	ret := parsePrefer(r).ret
	if ret == "representation" {
		if before, err = s.selectRows(r.Context(), s.db, t, q); err != nil {
			return err
		}
	}
	where, args := q.whereSQL()
	if _, err := s.db.ExecContext(r.Context(), "DELETE FROM "+quoteIdent(t.name)+where, args...); err != nil {
		return err
	}
	if ret == "representation" {
		if before == nil {
			before = []map[string]any{}
		}
		return writeJSON(w, http.StatusOK, before)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	fn := r.PathValue("fn")
	switch fn {
	case "is_maintainer_of_organisation":
		var args struct {
			MaintainerID   string `json:"maintainer_id"`
			OrganisationID string `json:"organisation_id"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&args); err != nil {
			writeError(w, badRequest("PGRST102", "invalid JSON body"))
			return
		}
		var ok bool
		err := s.db.QueryRowContext(r.Context(),
			`SELECT EXISTS (SELECT 1 FROM maintainer_for_organisation WHERE maintainer = ? AND organisation = ?)`,
			args.MaintainerID, args.OrganisationID).Scan(&ok)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = writeJSON(w, http.StatusOK, ok)
	default:
		writeError(w, newAPIError(http.StatusNotFound, "PGRST202", "could not find the function public."+fn))
	}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Server) selectRows(ctx context.Context, db querier, t *table, q query) ([]map[string]any, error) {
	cols := make([]string, len(t.cols))
	for i, c := range t.cols {
		cols[i] = quoteIdent(c.name)
	}
	where, args := q.whereSQL()
	stmt := "SELECT " + strings.Join(cols, ", ") + " FROM " + quoteIdent(t.name) + where
	if len(q.order) > 0 {
		stmt += " ORDER BY " + strings.Join(q.order, ", ")
	}
	stmt += " LIMIT ? OFFSET ?"
	args = append(args, q.limit, q.offset)

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []map[string]any{}
	vals := make([]any, len(t.cols))
	ptrs := make([]any, len(t.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(t.cols))
		for i, c := range t.cols {
			m[c.name] = outValue(c, vals[i])
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Server) count(ctx context.Context, t *table, q query) (int, error) {
	where, args := q.whereSQL()
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(t.name)+where, args...).Scan(&n)
	return n, err
}

// rowsByID returns rows in the order of ids.
func (s *Server) rowsByID(ctx context.Context, t *table, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return []map[string]any{}, nil
	}
	q := query{limit: -1, where: []clause{{sql: `"id" IN (` + placeholders(len(ids)) + ")", args: stringsToAny(ids)}}}
	rows, err := s.selectRows(ctx, s.db, t, q)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		byID[id] = row
	}
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func matchingIDs(ctx context.Context, db querier, t *table, q query) ([]string, error) {
	where, args := q.whereSQL()
	rows, err := db.QueryContext(ctx, "SELECT id FROM "+quoteIdent(t.name)+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rowColumns lists the columns of vals in table order with their arguments.
func rowColumns(t *table, vals map[string]any) ([]string, []any) {
	cols := make([]string, 0, len(vals))
	args := make([]any, 0, len(vals))
	for _, c := range t.cols {
		if v, ok := vals[c.name]; ok {
			cols = append(cols, c.name)
			args = append(args, v)
		}
	}
	return cols, args
}

func quoteIdents(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return strings.Join(out, ", ")
}

func insertRow(ctx context.Context, tx *sql.Tx, t *table, vals map[string]any) error {
	cols, args := rowColumns(t, vals)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(t.name), quoteIdents(cols), placeholders(len(args)))
	_, err := tx.ExecContext(ctx, stmt, args...)
	return err
}

// upsertRow runs INSERT ... ON CONFLICT (id) DO UPDATE over the columns in
// vals. The proposed row is checked against NOT NULL and CHECK constraints
// before the conflict is resolved, so a partial row fails even when its id
// exists.
func upsertRow(ctx context.Context, tx *sql.Tx, t *table, vals map[string]any) error {
	cols, args := rowColumns(t, vals)
	set := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != "id" {
			set = append(set, quoteIdent(c)+" = excluded."+quoteIdent(c))
		}
	}
	action := "DO NOTHING"
	if len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) %s",
		quoteIdent(t.name), quoteIdents(cols), placeholders(len(args)), action)
	_, err := tx.ExecContext(ctx, stmt, args...)
	return err
}

func assignments(vals map[string]any) (string, []any) {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		parts[i] = quoteIdent(k) + " = ?"
		args[i] = vals[k]
	}
	return strings.Join(parts, ", "), args
}

// readRows decodes a JSON object or array of objects.
func readRows(r *http.Request) ([]map[string]any, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, badRequest("PGRST102", "empty or invalid JSON body")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if b[0] == '[' {
		var rows []map[string]any
		if err := dec.Decode(&rows); err != nil {
			return nil, badRequest("PGRST102", "empty or invalid JSON body").withDetails(err.Error())
		}
		return rows, nil
	}
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, badRequest("PGRST102", "empty or invalid JSON body").withDetails(err.Error())
	}
	return []map[string]any{row}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
