package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEveryUpHasDown(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	ups := 0
	for name := range names {
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		ups++
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		if !names[down] {
			t.Errorf("%s has no matching %s", name, down)
		}
	}
	if ups != 3 {
		t.Fatalf("expected 3 migrations, got %d", ups)
	}
}
