package model

// Child-collection entities. Each belongs to exactly one parent record
// (software or project) and carries a 1-based position within that parent.
//
// An empty ID means the entity exists only in memory and has not been created
// remotely yet.

type Contributor struct {
	ID              string  `json:"id,omitempty"`
	Software        string  `json:"software"`
	GivenNames      string  `json:"given_names"`
	FamilyNames     string  `json:"family_names"`
	Email           *string `json:"email_address"`
	Affiliation     *string `json:"affiliation"`
	Role            *string `json:"role"`
	ORCID           *string `json:"orcid"`
	IsContactPerson bool    `json:"is_contact_person"`
	Position        int     `json:"position"`
}

func (c Contributor) ItemID() string    { return c.ID }
func (c Contributor) ItemPosition() int { return c.Position }

func (c Contributor) WithPosition(pos int) Contributor {
	c.Position = pos
	return c
}

func (c Contributor) WithParent(id string) Contributor {
	c.Software = id
	return c
}

func (c Contributor) DisplayName() string {
	switch {
	case c.GivenNames != "" && c.FamilyNames != "":
		return c.GivenNames + " " + c.FamilyNames
	case c.FamilyNames != "":
		return c.FamilyNames
	default:
		return c.GivenNames
	}
}

type Keyword struct {
	ID       string `json:"id,omitempty"`
	Software string `json:"software"`
	Keyword  string `json:"keyword"`
	Position int    `json:"position"`
}

func (k Keyword) ItemID() string    { return k.ID }
func (k Keyword) ItemPosition() int { return k.Position }

func (k Keyword) WithPosition(pos int) Keyword {
	k.Position = pos
	return k
}

func (k Keyword) WithParent(id string) Keyword {
	k.Software = id
	return k
}

type ProjectLink struct {
	ID       string `json:"id,omitempty"`
	Project  string `json:"project"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

func (l ProjectLink) ItemID() string    { return l.ID }
func (l ProjectLink) ItemPosition() int { return l.Position }

func (l ProjectLink) WithPosition(pos int) ProjectLink {
	l.Position = pos
	return l
}

func (l ProjectLink) WithParent(id string) ProjectLink {
	l.Project = id
	return l
}

type OrganisationRole string

const (
	OrganisationParticipating OrganisationRole = "participating"
	OrganisationFunding       OrganisationRole = "funding"
)

// Organisation is the link row between a project and a registered organisation.
type Organisation struct {
	ID           string           `json:"id,omitempty"`
	Project      string           `json:"project"`
	Organisation string           `json:"organisation"`
	Name         string           `json:"name,omitempty"`
	Role         OrganisationRole `json:"role"`
	Status       string           `json:"status,omitempty"`
	Position     int              `json:"position"`

	// Name belongs to the organisation record. It is read for display and
	// never written through the link row.
	// CanEdit is resolved client-side from maintainer checks and never sent.
	CanEdit bool `json:"-"`
}

func (o Organisation) ItemID() string    { return o.ID }
func (o Organisation) ItemPosition() int { return o.Position }

func (o Organisation) WithPosition(pos int) Organisation {
	o.Position = pos
	return o
}

func (o Organisation) WithParent(id string) Organisation {
	o.Project = id
	return o
}
