// Package transfer holds the pure, directly-testable helpers used by the
// bulk transfer engine and the orchestrator: FTP URL construction and the
// file-vs-directory path classifier that drives upload/download dispatch.
package transfer

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// EnsureFTPURL builds a "ftp://host[:port]/path" URL from a raw path,
// percent-encoding reserved characters while preserving "/". If raw already
// begins with "ftp://" it is returned unchanged. Port is omitted from the
// authority when it is <= 0.
func EnsureFTPURL(host string, port int, raw string) string {
	if strings.HasPrefix(raw, "ftp://") {
		return raw
	}

	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		trimmed = "/"
	}

	clean := path.Clean("/" + trimmed)
	encoded := encodeReservedSlash(clean)

	host = strings.TrimSpace(host)
	authority := host
	if port > 0 {
		authority = host + ":" + strconv.Itoa(port)
	}

	return "ftp://" + authority + encoded
}

// encodeReservedSlash percent-encodes every path segment individually so
// that "/" is preserved as a separator, mirroring urllib.parse.quote(path,
// safe="/").
func encodeReservedSlash(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// IsDirPath classifies a path string as a directory path or a file path: a
// trailing path separator always means "directory"; otherwise a basename
// starting with "." or carrying a file extension means "file"; anything
// else is treated as a directory. This is a pure, lexical classification -
// callers that can check the local or remote filesystem directly (os.Stat,
// IsDir/IsFile) should prefer that when available.
func IsDirPath(p string) bool {
	if strings.HasSuffix(p, "/") {
		return true
	}
	base := path.Base(p)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if path.Ext(base) != "" {
		return false
	}
	return true
}

// StripGlobSuffix removes a trailing "*" from a source path, the shorthand
// for "all contents of this directory".
func StripGlobSuffix(p string) string {
	return strings.TrimSuffix(p, "*")
}
