package devapi

import (
	"context"
	"database/sql"
	"fmt"
)

// Fixed identities of the demo records Seed creates.
const (
	SeedSoftwareID     = "0d0c9a57-5b8e-4c5e-9a53-6f1e1a6f0001"
	SeedSoftwareSlug   = "sat-tracker"
	SeedProjectID      = "0d0c9a57-5b8e-4c5e-9a53-6f1e1a6f0101"
	SeedOrganisationA  = "0d0c9a57-5b8e-4c5e-9a53-6f1e1a6f0201"
	SeedOrganisationB  = "0d0c9a57-5b8e-4c5e-9a53-6f1e1a6f0202"
	SeedMaintainerID   = "0d0c9a57-5b8e-4c5e-9a53-6f1e1a6f0301"
	seedSecondSoftware = "0d0c9a57-5b8e-4c5e-9a53-6f1e1a6f0002"
)

// Seed inserts a small demo registry. It is idempotent.
func Seed(ctx context.Context, db *sql.DB) error {
	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT OR IGNORE INTO software (id, slug, brand_name, short_statement, description, is_published, mention_cnt)
			VALUES (?, ?, ?, ?, ?, 1, 12)`,
			[]any{SeedSoftwareID, SeedSoftwareSlug, "Sat Tracker", "Track satellites from the terminal",
				"# Sat Tracker\n\nPredicts satellite passes from TLE data.\n\n- fast\n- offline\n"}},
		{`INSERT OR IGNORE INTO software (id, slug, brand_name, short_statement, is_published, mention_cnt)
			VALUES (?, ?, ?, ?, 1, 3)`,
			[]any{seedSecondSoftware, "gis-kit", "GIS Kit", "Geospatial helpers"}},
		{`INSERT OR IGNORE INTO contributor (id, software, given_names, family_names, email_address, is_contact_person, position)
			VALUES (?, ?, 'Ada', 'Lovelace', 'ada@example.org', 1, 1)`,
			[]any{"seed-contributor-1", SeedSoftwareID}},
		{`INSERT OR IGNORE INTO contributor (id, software, given_names, family_names, position)
			VALUES (?, ?, 'Alan', 'Turing', 2)`,
			[]any{"seed-contributor-2", SeedSoftwareID}},
		{`INSERT OR IGNORE INTO keyword_for_software (id, software, keyword, position) VALUES (?, ?, 'astronomy', 1)`,
			[]any{"seed-keyword-1", SeedSoftwareID}},
		{`INSERT OR IGNORE INTO keyword_for_software (id, software, keyword, position) VALUES (?, ?, 'python', 2)`,
			[]any{"seed-keyword-2", SeedSoftwareID}},
		{`INSERT OR IGNORE INTO keyword_for_software (id, software, keyword, position) VALUES (?, ?, 'GIS', 1)`,
			[]any{"seed-keyword-3", seedSecondSoftware}},
		{`INSERT OR IGNORE INTO project (id, slug, title) VALUES (?, 'orbit-watch', 'Orbit Watch')`,
			[]any{SeedProjectID}},
		{`INSERT OR IGNORE INTO url_for_project (id, project, title, url, position)
			VALUES (?, ?, 'Homepage', 'https://orbit.example.org', 1)`,
			[]any{"seed-link-1", SeedProjectID}},
		{`INSERT OR IGNORE INTO organisation (id, slug, name) VALUES (?, 'escience', 'eScience Center')`,
			[]any{SeedOrganisationA}},
		{`INSERT OR IGNORE INTO organisation (id, slug, name) VALUES (?, 'space-lab', 'Space Lab')`,
			[]any{SeedOrganisationB}},
		{`INSERT OR IGNORE INTO organisation_for_project (id, project, organisation, role, position)
			VALUES (?, ?, ?, 'participating', 1)`,
			[]any{"seed-org-link-1", SeedProjectID, SeedOrganisationA}},
		{`INSERT OR IGNORE INTO organisation_for_project (id, project, organisation, role, position)
			VALUES (?, ?, ?, 'participating', 2)`,
			[]any{"seed-org-link-2", SeedProjectID, SeedOrganisationB}},
		{`INSERT OR IGNORE INTO maintainer_for_organisation (maintainer, organisation) VALUES (?, ?)`,
			[]any{SeedMaintainerID, SeedOrganisationA}},
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s.q, s.args...); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
