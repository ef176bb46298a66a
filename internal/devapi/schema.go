// Package devapi is a small sqlite-backed stand-in for the registry's
// PostgREST API. It serves the endpoints rsd consumes so the client can be
// exercised locally and in tests.
package devapi

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (and migrates) the development database at path. ":memory:"
// gives a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = ":memory:"
	}
	// Pragmas go in the DSN so every pooled connection gets them.
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	if path != ":memory:" {
		pragmas = append(pragmas, "journal_mode(WAL)", "synchronous(NORMAL)")
	}
	dsn := path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")

	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const nowRFC3339 = `(strftime('%Y-%m-%dT%H:%M:%SZ','now'))`

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS software (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			brand_name TEXT NOT NULL,
			short_statement TEXT,
			description TEXT,
			concept_doi TEXT,
			get_started_url TEXT,
			is_published INTEGER NOT NULL DEFAULT 0,
			mention_cnt INTEGER,
			created_at TEXT NOT NULL DEFAULT ` + nowRFC3339 + `,
			updated_at TEXT NOT NULL DEFAULT ` + nowRFC3339 + `
		);`,
		`CREATE TABLE IF NOT EXISTS project (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS contributor (
			id TEXT PRIMARY KEY,
			software TEXT NOT NULL REFERENCES software(id) ON DELETE CASCADE,
			given_names TEXT NOT NULL,
			family_names TEXT NOT NULL,
			email_address TEXT,
			affiliation TEXT,
			role TEXT,
			orcid TEXT,
			is_contact_person INTEGER NOT NULL DEFAULT 0,
			position INTEGER CHECK (position IS NULL OR position >= 1)
		);`,
		`CREATE INDEX IF NOT EXISTS contributor_software ON contributor(software, position);`,
		`CREATE TABLE IF NOT EXISTS keyword_for_software (
			id TEXT PRIMARY KEY,
			software TEXT NOT NULL REFERENCES software(id) ON DELETE CASCADE,
			keyword TEXT NOT NULL CHECK (length(trim(keyword)) > 0),
			position INTEGER CHECK (position IS NULL OR position >= 1)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS keyword_for_software_unique ON keyword_for_software(software, lower(trim(keyword)));`,
		`CREATE TABLE IF NOT EXISTS url_for_project (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL REFERENCES project(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			position INTEGER CHECK (position IS NULL OR position >= 1)
		);`,
		`CREATE TABLE IF NOT EXISTS organisation (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS organisation_for_project (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL REFERENCES project(id) ON DELETE CASCADE,
			organisation TEXT NOT NULL REFERENCES organisation(id) ON DELETE CASCADE,
			role TEXT NOT NULL DEFAULT 'participating' CHECK (role IN ('participating','funding')),
			status TEXT NOT NULL DEFAULT 'approved',
			position INTEGER CHECK (position IS NULL OR position >= 1),
			UNIQUE (project, organisation, role)
		);`,
		`CREATE TABLE IF NOT EXISTS maintainer_for_organisation (
			maintainer TEXT NOT NULL,
			organisation TEXT NOT NULL REFERENCES organisation(id) ON DELETE CASCADE,
			PRIMARY KEY (maintainer, organisation)
		);`,
		`CREATE VIEW IF NOT EXISTS software_search AS
			SELECT s.id, s.slug, s.brand_name, s.short_statement, s.is_published, s.updated_at,
				(SELECT COUNT(*) FROM contributor c WHERE c.software = s.id) AS contributor_cnt,
				s.mention_cnt AS mention_cnt,
				(SELECT json_group_array(k.keyword) FROM
					(SELECT keyword FROM keyword_for_software WHERE software = s.id ORDER BY position) k) AS keywords
			FROM software s
			WHERE s.is_published = 1;`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
