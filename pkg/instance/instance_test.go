package instance

import "testing"

func TestIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("HOSTNAME", "api-7f9c")
	if got := ID(); got != "web.1" {
		t.Fatalf("expected dyno id got %q", got)
	}
}

func TestIDFallsBackToLocal(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("WORKER_ID", "")
	t.Setenv("HOSTNAME", "")
	if got := ID(); got != "local" {
		t.Fatalf("expected local got %q", got)
	}
}
