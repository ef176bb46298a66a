package main

import (
	"reflect"
	"testing"
)

func TestRewriteSoftwareURLArgs(t *testing.T) {
	t.Parallel()

	const page = "https://research-software-directory.org/software/sat-tracker"

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"rsd"},
			want: []string{"rsd"},
		},
		{
			name: "software url first token",
			in:   []string{"rsd", page},
			want: []string{"rsd", "software", "show", "sat-tracker"},
		},
		{
			name: "edit page url keeps trailing flags",
			in:   []string{"rsd", page + "/edit/information", "--render"},
			want: []string{"rsd", "software", "show", "sat-tracker", "--render"},
		},
		{
			name: "url after value flag",
			in:   []string{"rsd", "--api-url", "http://localhost:3500", page},
			want: []string{"rsd", "--api-url", "http://localhost:3500", "software", "show", "sat-tracker"},
		},
		{
			name: "url after equals flag",
			in:   []string{"rsd", "--config-dir=./tmp", page},
			want: []string{"rsd", "--config-dir=./tmp", "software", "show", "sat-tracker"},
		},
		{
			name: "url after bool flag",
			in:   []string{"rsd", "--pretty", page},
			want: []string{"rsd", "--pretty", "software", "show", "sat-tracker"},
		},
		{
			name: "url after double dash",
			in:   []string{"rsd", "--", page},
			want: []string{"rsd", "--", "software", "show", "sat-tracker"},
		},
		{
			name: "project url not rewritten",
			in:   []string{"rsd", "https://research-software-directory.org/projects/orbit-watch"},
			want: []string{"rsd", "https://research-software-directory.org/projects/orbit-watch"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"rsd", "software", "show", "sat-tracker"},
			want: []string{"rsd", "software", "show", "sat-tracker"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"rsd", "wat"},
			want: []string{"rsd", "wat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteSoftwareURLArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteSoftwareURLArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
