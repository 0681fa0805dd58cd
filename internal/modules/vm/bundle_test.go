package vm

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"howett.net/plist"
)

func writeBundle(t *testing.T, settings map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.box")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	zw := gzip.NewWriter(f)
	tw := tar.NewWriter(zw)
	data, err := plist.Marshal(settings, plist.XMLFormat)
	if err != nil {
		t.Fatalf("plist: %v", err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: "export.vm/settings.plist", Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("header: %v", err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return path
}

func TestNameFromPath(t *testing.T) {
	cases := map[string]string{
		"/img/web.vmz":    "web",
		"web.tar.gz":      "web",
		"/img/plain":      "plain",
		"/img/.hidden.vm": ".hidden",
	}
	for in, want := range cases {
		if got := NameFromPath(in); got != want {
			t.Fatalf("NameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGuessNamePrefersName(t *testing.T) {
	path := writeBundle(t, map[string]string{"name": "web", "display_name": "Web Server"})
	if got := GuessName(path); got != "web" {
		t.Fatalf("unexpected name %q", got)
	}
	path = writeBundle(t, map[string]string{"display_name": "Database"})
	if got := GuessName(path); got != "Database" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestGuessNameFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.box")
	if err := os.WriteFile(path, []byte("not gzip"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := GuessName(path); got != "broken" {
		t.Fatalf("unexpected name %q", got)
	}
}
