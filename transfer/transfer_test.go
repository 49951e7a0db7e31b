package transfer

import "testing"

func TestEnsureFTPURL(t *testing.T) {
	tests := []struct {
		name string
		host string
		port int
		raw  string
		want string
	}{
		{"already a url", "h", 21, "ftp://h:21/a", "ftp://h:21/a"},
		{"absolute path with port", "h", 21, "/1/2/3/test.txt", "ftp://h:21/1/2/3/test.txt"},
		{"reserved character escaped", "h", 21, "#backet", "ftp://h:21/%23backet"},
		{"port omitted when zero", "h", 0, "1/2/test.txt", "ftp://h/1/2/test.txt"},
		{"root path", "h", 21, "/", "ftp://h:21/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnsureFTPURL(tt.host, tt.port, tt.raw)
			if got != tt.want {
				t.Errorf("EnsureFTPURL(%q, %d, %q) = %q, want %q", tt.host, tt.port, tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsDirPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"foo/", true},
		{"foo", true},
		{"foo.txt", false},
		{".hidden", false},
		{"/a/b/c", true},
		{"/a/b/c.tar.gz", false},
	}
	for _, tt := range tests {
		if got := IsDirPath(tt.path); got != tt.want {
			t.Errorf("IsDirPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestStripGlobSuffix(t *testing.T) {
	if got := StripGlobSuffix("/dir/*"); got != "/dir/" {
		t.Errorf("StripGlobSuffix = %q, want %q", got, "/dir/")
	}
	if got := StripGlobSuffix("/dir/file"); got != "/dir/file" {
		t.Errorf("StripGlobSuffix = %q, want unchanged", got)
	}
}
