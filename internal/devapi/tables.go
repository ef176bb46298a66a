package devapi

type colKind int

const (
	colText colKind = iota
	colInt
	colBool
	colJSON
)

type column struct {
	name     string
	kind     colKind
	readOnly bool
}

// table is a REST-exposed relation and the columns clients may filter,
// order, read and write.
type table struct {
	name     string
	cols     []column
	writable bool
}

func (t *table) column(name string) (column, bool) {
	for _, c := range t.cols {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func text(name string) column      { return column{name: name, kind: colText} }
func integer(name string) column   { return column{name: name, kind: colInt} }
func boolean(name string) column   { return column{name: name, kind: colBool} }
func jsonArray(name string) column { return column{name: name, kind: colJSON, readOnly: true} }

func readonly(c column) column {
	c.readOnly = true
	return c
}

var tables = map[string]*table{
	"software": {
		name: "software",
		cols: []column{
			text("id"), text("slug"), text("brand_name"), text("short_statement"), text("description"),
			text("concept_doi"), text("get_started_url"), boolean("is_published"), integer("mention_cnt"),
			readonly(text("created_at")), readonly(text("updated_at")),
		},
	},
	"software_search": {
		name: "software_search",
		cols: []column{
			text("id"), text("slug"), text("brand_name"), text("short_statement"), boolean("is_published"),
			text("updated_at"), integer("contributor_cnt"), integer("mention_cnt"), jsonArray("keywords"),
		},
	},
	"project": {
		name: "project",
		cols: []column{text("id"), text("slug"), text("title")},
	},
	"organisation": {
		name: "organisation",
		cols: []column{text("id"), text("slug"), text("name")},
	},
	"contributor": {
		name:     "contributor",
		writable: true,
		cols: []column{
			text("id"), text("software"), text("given_names"), text("family_names"), text("email_address"),
			text("affiliation"), text("role"), text("orcid"), boolean("is_contact_person"), integer("position"),
		},
	},
	"keyword_for_software": {
		name:     "keyword_for_software",
		writable: true,
		cols:     []column{text("id"), text("software"), text("keyword"), integer("position")},
	},
	"url_for_project": {
		name:     "url_for_project",
		writable: true,
		cols:     []column{text("id"), text("project"), text("title"), text("url"), integer("position")},
	},
	"organisation_for_project": {
		name:     "organisation_for_project",
		writable: true,
		cols: []column{
			text("id"), text("project"), text("organisation"), text("role"), text("status"), integer("position"),
		},
	},
}
