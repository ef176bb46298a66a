package registry

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"rsd-cli/internal/model"
	"rsd-cli/internal/postgrest"
)

const (
	maxKeywordLen = 64
	maxTitleLen   = 100
	maxURLLen     = 200
)

var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[0-9X]$`)

func Contributors() Spec[model.Contributor] {
	return Spec[model.Contributor]{
		Kind:     KindContributors,
		Noun:     "contributor",
		Parent:   "software",
		Endpoint: postgrest.Endpoint{Table: "contributor", ParentColumn: "software"},
		Fields: []Field{
			{Key: "given_names", Label: "Given names", Required: true},
			{Key: "family_names", Label: "Family names", Required: true},
			{Key: "email_address", Label: "Email"},
			{Key: "affiliation", Label: "Affiliation"},
			{Key: "role", Label: "Role"},
			{Key: "orcid", Label: "ORCID", Help: "0000-0000-0000-0000"},
			{Key: "is_contact_person", Label: "Contact person", Help: "yes/no"},
		},
		Duplicate: func(a, b model.Contributor) bool {
			if a.ORCID != nil && b.ORCID != nil && *a.ORCID != "" && *a.ORCID == *b.ORCID {
				return true
			}
			return strings.EqualFold(strings.TrimSpace(a.DisplayName()), strings.TrimSpace(b.DisplayName()))
		},
		title: func(c model.Contributor) string {
			t := c.DisplayName()
			if c.IsContactPerson {
				t += " (contact)"
			}
			return t
		},
		get: func(c model.Contributor, key string) string {
			switch key {
			case "given_names":
				return c.GivenNames
			case "family_names":
				return c.FamilyNames
			case "email_address":
				return optional(c.Email)
			case "affiliation":
				return optional(c.Affiliation)
			case "role":
				return optional(c.Role)
			case "orcid":
				return optional(c.ORCID)
			case "is_contact_person":
				if c.IsContactPerson {
					return "yes"
				}
				return "no"
			}
			return ""
		},
		set: func(c model.Contributor, key, v string) model.Contributor {
			switch key {
			case "given_names":
				c.GivenNames = v
			case "family_names":
				c.FamilyNames = v
			case "email_address":
				c.Email = ptr(v)
			case "affiliation":
				c.Affiliation = ptr(v)
			case "role":
				c.Role = ptr(v)
			case "orcid":
				c.ORCID = ptr(v)
			case "is_contact_person":
				c.IsContactPerson = parseBool(v)
			}
			return c
		},
		check: func(c model.Contributor) error {
			if c.Email != nil {
				if _, err := mail.ParseAddress(*c.Email); err != nil {
					return fmt.Errorf("invalid email %q", *c.Email)
				}
			}
			if c.ORCID != nil && !orcidPattern.MatchString(*c.ORCID) {
				return fmt.Errorf("invalid ORCID %q", *c.ORCID)
			}
			if c.IsContactPerson && c.Email == nil {
				return errors.New("a contact person needs an email")
			}
			return nil
		},
	}
}

func Keywords() Spec[model.Keyword] {
	return Spec[model.Keyword]{
		Kind:     KindKeywords,
		Noun:     "keyword",
		Parent:   "software",
		Endpoint: postgrest.Endpoint{Table: "keyword_for_software", ParentColumn: "software"},
		Fields:   []Field{{Key: "keyword", Label: "Keyword", Required: true}},
		Duplicate: func(a, b model.Keyword) bool {
			return strings.EqualFold(strings.TrimSpace(a.Keyword), strings.TrimSpace(b.Keyword))
		},
		title: func(k model.Keyword) string { return k.Keyword },
		get: func(k model.Keyword, key string) string {
			if key == "keyword" {
				return k.Keyword
			}
			return ""
		},
		set: func(k model.Keyword, key, v string) model.Keyword {
			if key == "keyword" {
				k.Keyword = v
			}
			return k
		},
		check: func(k model.Keyword) error {
			if len([]rune(k.Keyword)) > maxKeywordLen {
				return fmt.Errorf("keyword is longer than %d characters", maxKeywordLen)
			}
			return nil
		},
	}
}

func Links() Spec[model.ProjectLink] {
	return Spec[model.ProjectLink]{
		Kind:     KindLinks,
		Noun:     "link",
		Parent:   "project",
		Endpoint: postgrest.Endpoint{Table: "url_for_project", ParentColumn: "project"},
		Fields: []Field{
			{Key: "title", Label: "Title", Required: true},
			{Key: "url", Label: "URL", Required: true, Help: "https://..."},
		},
		Duplicate: func(a, b model.ProjectLink) bool {
			return strings.TrimRight(strings.TrimSpace(a.URL), "/") == strings.TrimRight(strings.TrimSpace(b.URL), "/")
		},
		title: func(l model.ProjectLink) string { return l.Title + " <" + l.URL + ">" },
		get: func(l model.ProjectLink, key string) string {
			switch key {
			case "title":
				return l.Title
			case "url":
				return l.URL
			}
			return ""
		},
		set: func(l model.ProjectLink, key, v string) model.ProjectLink {
			switch key {
			case "title":
				l.Title = v
			case "url":
				l.URL = v
			}
			return l
		},
		check: func(l model.ProjectLink) error {
			if len([]rune(l.Title)) > maxTitleLen {
				return fmt.Errorf("title is longer than %d characters", maxTitleLen)
			}
			if len(l.URL) > maxURLLen {
				return fmt.Errorf("url is longer than %d characters", maxURLLen)
			}
			u, err := url.Parse(l.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid url %q", l.URL)
			}
			return nil
		},
	}
}

func Organisations() Spec[model.Organisation] {
	return Spec[model.Organisation]{
		Kind:     KindOrganisations,
		Noun:     "organisation",
		Parent:   "project",
		Endpoint: organisationEndpoint,
		Fields: []Field{
			{Key: "organisation", Label: "Organisation id", Required: true},
		},
		Duplicate: func(a, b model.Organisation) bool {
			return strings.TrimSpace(a.Organisation) == strings.TrimSpace(b.Organisation)
		},
		title: func(o model.Organisation) string {
			t := o.Name
			if t == "" {
				t = o.Organisation
			}
			if o.CanEdit {
				t += " [maintainer]"
			}
			return t
		},
		get: func(o model.Organisation, key string) string {
			if key == "organisation" {
				return o.Organisation
			}
			return ""
		},
		set: func(o model.Organisation, key, v string) model.Organisation {
			if key == "organisation" && v != o.Organisation {
				o.Organisation = v
				o.Name = ""
			}
			if o.Role == "" {
				o.Role = model.OrganisationParticipating
			}
			return o
		},
	}
}

var organisationEndpoint = postgrest.Endpoint{
	Table:        "organisation_for_project",
	ParentColumn: "project",
	Filters:      map[string]string{"role": "eq." + string(model.OrganisationParticipating)},
	ReadOnly:     []string{"name"},
}
