package analyze

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestHumanSize(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0.0 B"},
		{512, "512.0 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tc := range cases {
		if got := HumanSize(tc.n); got != tc.want {
			t.Errorf("HumanSize(%d): expected %q, got %q", tc.n, tc.want, got)
		}
	}
}

func TestFile_MissingFile(t *testing.T) {
	info := File(context.Background(), nil, "/does/not/exist.pdf")
	if info.Health != HealthUnreadable {
		t.Errorf("expected unreadable, got %s", info.Health)
	}
	if info.Error == "" {
		t.Error("expected error message for missing file")
	}
}

func TestFile_GarbageFile(t *testing.T) {
	// Not a PDF; no gs runner so no repair probe.
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}

	info := File(context.Background(), nil, path)
	if info.Health != HealthUnreadable {
		t.Errorf("expected unreadable, got %s", info.Health)
	}
	if info.Name != "garbage.pdf" {
		t.Errorf("expected name garbage.pdf, got %s", info.Name)
	}
	if info.SizeBytes == 0 {
		t.Error("expected nonzero size for existing file")
	}
}
