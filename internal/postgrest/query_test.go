package postgrest

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"rsd-cli/internal/model"
)

func TestParseListParams(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   string
		want ListParams
	}{
		{"defaults", "", ListParams{Rows: 12}},
		{"negative page clamps", "page=-3&rows=24", ListParams{Rows: 24}},
		{"rows outside options", "page=2&rows=13", ListParams{Page: 2, Rows: 12}},
		{"keywords json", `search=+gis+&keywords=["python","  "]`, ListParams{Search: "gis", Keywords: []string{"python"}, Rows: 12}},
		{"malformed keywords ignored", `keywords=python`, ListParams{Rows: 12}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v, err := url.ParseQuery(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, ParseListParams(v))
		})
	}
}

func TestSoftwareListQuery(t *testing.T) {
	t.Parallel()
	path := SoftwareListQuery(ListParams{Search: "sat(ellite)", Keywords: []string{"GIS", "python"}, Page: 2, Rows: 24})
	u, err := url.Parse(path)
	require.NoError(t, err)
	require.Equal(t, "software_search", u.Path)

	q := u.Query()
	require.Equal(t, "(brand_name.ilike.*satellite*,short_statement.ilike.*satellite*)", q.Get("or"))
	require.Equal(t, `cs.{"GIS","python"}`, q.Get("keywords"))
	require.Equal(t, "mention_cnt.desc.nullslast,contributor_cnt.desc.nullslast,updated_at.desc.nullslast", q.Get("order"))
	require.Equal(t, "24", q.Get("limit"))
	require.Equal(t, "48", q.Get("offset"))
}

func TestSoftwareListQuery_NoSearchOmitsFilter(t *testing.T) {
	t.Parallel()
	u, err := url.Parse(SoftwareListQuery(ListParams{}))
	require.NoError(t, err)
	require.False(t, u.Query().Has("or"))
	require.False(t, u.Query().Has("keywords"))
	require.Equal(t, "12", u.Query().Get("limit"))
	require.Equal(t, "0", u.Query().Get("offset"))
}

func TestListURL_NewSearchResetsPage(t *testing.T) {
	t.Parallel()
	prev := ListParams{Search: "a", Page: 3, Rows: 24}

	same := ListURL(prev, ListParams{Search: "a", Page: 4, Rows: 24})
	v, err := url.ParseQuery(same[1:])
	require.NoError(t, err)
	require.Equal(t, "4", v.Get("page"))

	changed := ListURL(prev, ListParams{Search: "b", Page: 4, Rows: 24})
	v, err = url.ParseQuery(changed[1:])
	require.NoError(t, err)
	require.Equal(t, "0", v.Get("page"))
	require.Equal(t, "b", v.Get("search"))
}

func TestParseContentRange(t *testing.T) {
	t.Parallel()
	cases := map[string]int{
		"0-11/123": 123,
		"*/0":      0,
		"0-11/*":   -1,
		"":         -1,
		"garbage":  -1,
	}
	for in, want := range cases {
		if got := parseContentRange(in, -1); got != want {
			t.Fatalf("parseContentRange(%q): expected %d; got %d", in, want, got)
		}
	}
}

func TestListPage_ReadsCountFromContentRange(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/software_search", r.URL.Path)
		require.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-0/57")
		writeJSON(w, http.StatusPartialContent, []model.SoftwareListItem{{ID: "s1", Slug: "one", BrandName: "One"}})
	})

	page, err := c.ListPage(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 57, page.Count)
	require.Len(t, page.Items, 1)
	require.Equal(t, 12, page.Rows)
}

func TestSoftware_EmptyResultIsNotFound(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "eq.missing", r.URL.Query().Get("slug"))
		writeJSON(w, http.StatusOK, []model.Software{})
	})
	_, err := c.Software(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
