package model

import "time"

// SoftwareListItem is one card on the software overview.
type SoftwareListItem struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	BrandName      string     `json:"brand_name"`
	ShortStatement *string    `json:"short_statement"`
	IsPublished    bool       `json:"is_published"`
	UpdatedAt      *time.Time `json:"updated_at"`
	ContributorCnt *int       `json:"contributor_cnt"`
	MentionCnt     *int       `json:"mention_cnt"`
	Keywords       []string   `json:"keywords"`
}

type Software struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	BrandName      string     `json:"brand_name"`
	ShortStatement *string    `json:"short_statement"`
	Description    *string    `json:"description"`
	ConceptDOI     *string    `json:"concept_doi"`
	GetStartedURL  *string    `json:"get_started_url"`
	IsPublished    bool       `json:"is_published"`
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}
