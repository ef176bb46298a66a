package main

import (
	"net/url"
	"os"
	"strings"

	"rsd-cli/internal/cli"
)

// softwareSlugFromURL extracts the slug from a registry page link such as
// https://research-software-directory.org/software/sat-tracker/edit.
func softwareSlugFromURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "software" && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}

func rewriteSoftwareURLArgs(argv []string) []string {
	// Convenience: `rsd <software page url>` works like `rsd software show <slug>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten
	// before parsing. Persistent flags may come first, so look for the first
	// positional token rather than argv[1].
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without consuming a value.
	valueFlags := map[string]bool{
		"--config-dir": true,
		"--api-url":    true,
		"--token":      true,
		"--account":    true,
		"--log-level":  true,
		"--log-file":   true,
		"--format":     true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	rewrite := func(i int, slug string) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "software", "show", slug)
		out = append(out, argv[i+1:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				if slug, ok := softwareSlugFromURL(argv[i+1]); ok {
					return rewrite(i+1, slug)
				}
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
				continue
			}
			continue
		}

		if slug, ok := softwareSlugFromURL(a); ok {
			return rewrite(i, slug)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteSoftwareURLArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
