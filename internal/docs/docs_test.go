package docs

import (
	"strings"
	"testing"
)

func TestTopicsAndGet(t *testing.T) {
	topics := Topics()
	want := []string{"collections", "config", "dev-server", "keys"}
	if strings.Join(topics, ",") != strings.Join(want, ",") {
		t.Fatalf("Topics() = %v; want %v", topics, want)
	}
	for _, topic := range topics {
		body, ok := Get(topic)
		if !ok || !strings.HasPrefix(body, "# ") {
			t.Fatalf("Get(%q) = %q, %v", topic, body, ok)
		}
	}
	if _, ok := Get(" Keys "); !ok {
		t.Fatalf("expected topic lookup to be case-insensitive")
	}
	for _, bad := range []string{"", "missing", "../docs"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("Get(%q) should fail", bad)
		}
	}
}
