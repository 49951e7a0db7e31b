package ftpkit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/attenberger/ftpkit/internal/fakeftp"
)

func TestEngineDownloadCreatesParentAndWritesContent(t *testing.T) {
	srv, err := fakeftp.New()
	if err != nil {
		t.Fatalf("fakeftp.New: %v", err)
	}
	defer srv.Close()
	srv.PutFile("/1.txt", []byte("test"))

	fs, pool := openTestFS(t, srv)
	_ = fs
	engine := NewEngine(pool, testParams(t, srv.Addr(), 1, 1))

	tmp := t.TempDir()
	dst := filepath.Join(tmp, "out", "1.txt")
	n, err := engine.Download(context.Background(), "/1.txt", dst)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != 4 {
		t.Errorf("Download returned %d bytes, want 4", n)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "test" {
		t.Errorf("downloaded content = %q, want %q", got, "test")
	}
}

func TestEngineUploadWritesToServer(t *testing.T) {
	srv, err := fakeftp.New()
	if err != nil {
		t.Fatalf("fakeftp.New: %v", err)
	}
	defer srv.Close()

	fs, pool := openTestFS(t, srv)
	ctx := context.Background()
	if err := fs.MakeDirs(ctx, "/remote"); err != nil {
		t.Fatalf("MakeDirs: %v", err)
	}

	tmp := t.TempDir()
	src := filepath.Join(tmp, "up.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	engine := NewEngine(pool, testParams(t, srv.Addr(), 1, 1))
	n, err := engine.Upload(ctx, src, "/remote/up.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if n != 5 {
		t.Errorf("Upload returned %d bytes, want 5", n)
	}

	_, files := srv.ListPaths()
	found := false
	for _, f := range files {
		if f == "/remote/up.txt" {
			found = true
		}
	}
	if !found {
		t.Errorf("server files = %v, want /remote/up.txt present", files)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	srv, err := fakeftp.New()
	if err != nil {
		t.Fatalf("fakeftp.New: %v", err)
	}
	defer srv.Close()

	_, pool := openTestFS(t, srv)
	params := testParams(t, srv.Addr(), 1, 1)
	engine := NewEngine(pool, params)
	ctx := context.Background()

	tmp := t.TempDir()
	src := filepath.Join(tmp, "roundtrip.bin")
	content := []byte("round trip payload")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := engine.Upload(ctx, src, "/roundtrip.bin"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	dst := filepath.Join(tmp, "out", "roundtrip.bin")
	if _, err := engine.Download(ctx, "/roundtrip.bin", dst); err != nil {
		t.Fatalf("Download: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("round-tripped content = %q, want %q", got, content)
	}
}
