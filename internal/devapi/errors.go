package devapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// apiError is written as the PostgREST error document.
type apiError struct {
	status  int
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

func newAPIError(status int, code, message string) *apiError {
	return &apiError{status: status, Code: code, Message: message}
}

func (e *apiError) withDetails(d string) *apiError {
	e.Details = &d
	return e
}

func badRequest(code, message string) *apiError {
	return newAPIError(http.StatusBadRequest, code, message)
}

func writeError(w http.ResponseWriter, err error) {
	var ae *apiError
	if !errors.As(err, &ae) {
		ae = fromSQLite(err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ae.status)
	_ = json.NewEncoder(w).Encode(ae)
}

// fromSQLite maps constraint failures onto the Postgres error codes a real
// deployment would report.
func fromSQLite(err error) *apiError {
	msg := err.Error()
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return newAPIError(http.StatusConflict, "23505", "duplicate key value violates unique constraint").withDetails(msg)
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return badRequest("23502", "null value violates not-null constraint").withDetails(msg)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return newAPIError(http.StatusConflict, "23503", "insert or update violates foreign key constraint").withDetails(msg)
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return badRequest("23514", "new row violates check constraint").withDetails(msg)
		}
	}
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return newAPIError(http.StatusConflict, "23505", "duplicate key value violates unique constraint").withDetails(msg)
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return badRequest("23502", "null value violates not-null constraint").withDetails(msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return newAPIError(http.StatusConflict, "23503", "insert or update violates foreign key constraint").withDetails(msg)
	case strings.Contains(msg, "CHECK constraint failed"):
		return badRequest("23514", "new row violates check constraint").withDetails(msg)
	}
	return newAPIError(http.StatusInternalServerError, "XX000", "internal error").withDetails(msg)
}
