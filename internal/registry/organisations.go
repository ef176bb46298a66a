package registry

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"rsd-cli/internal/model"
	"rsd-cli/internal/postgrest"
)

// maxMaintainerChecks bounds concurrent permission lookups.
const maxMaintainerChecks = 8

// LoadOrganisations lists a project's participating organisations with their
// names and marks those the account maintains as editable. A failed name
// lookup or permission check degrades the affected fields; it does not fail
// the load.
func LoadOrganisations(ctx context.Context, client *postgrest.Client, project, account string, logger *slog.Logger) ([]model.Organisation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	orgs, err := postgrest.NewCollection[model.Organisation](client, organisationEndpoint).List(ctx, project)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(orgs))
	for i := range orgs {
		orgs[i].Position = i + 1
		ids[i] = orgs[i].Organisation
	}
	names, err := client.OrganisationNames(ctx, ids)
	if err != nil {
		logger.WarnContext(ctx, "organisation names unavailable", "project", project, "error", err)
	}
	for i := range orgs {
		if n, ok := names[orgs[i].Organisation]; ok {
			orgs[i].Name = n
		}
	}
	if account == "" {
		return orgs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxMaintainerChecks)
	for i := range orgs {
		g.Go(func() error {
			var ok bool
			err := client.RPC(gctx, "is_maintainer_of_organisation", map[string]string{
				"maintainer_id":   account,
				"organisation_id": orgs[i].Organisation,
			}, &ok)
			if err != nil {
				logger.WarnContext(gctx, "maintainer check failed", "organisation", orgs[i].Organisation, "error", err)
				return nil
			}
			orgs[i].CanEdit = ok
			return nil
		})
	}
	_ = g.Wait()
	return orgs, nil
}
