package vfs

import (
	"net/url"
	"path"
	"strings"
)

// Scheme returns the URI scheme component of an MRL, e.g. "file" for
// "file:///a/b.mp3".
func Scheme(mrl string) string {
	idx := strings.Index(mrl, "://")
	if idx < 0 {
		return ""
	}
	return mrl[:idx]
}

// ParentDirectory returns the parent directory MRL of mrl, preserving its
// scheme.
func ParentDirectory(mrl string) string {
	idx := strings.LastIndex(mrl, "/")
	if idx < 0 {
		return mrl
	}
	return mrl[:idx]
}

// FileName returns the last path component of mrl, percent-decoded.
func FileName(mrl string) string {
	idx := strings.LastIndex(mrl, "/")
	name := mrl
	if idx >= 0 {
		name = mrl[idx+1:]
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return name
	}
	return decoded
}

// Extension returns the lowercased file extension of mrl, without the
// leading dot, or "" if there is none.
func Extension(mrl string) string {
	ext := path.Ext(FileName(mrl))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// RemovePath strips prefix from mrl if mrl starts with it, returning mrl
// unchanged otherwise. Used to turn an absolute MRL on a removable device
// into the mountpoint-relative path stored in Folder.path.
func RemovePath(mrl, prefix string) string {
	if strings.HasPrefix(mrl, prefix) {
		return strings.TrimPrefix(mrl[len(prefix):], "/")
	}
	return mrl
}

// ToLocalPath converts a file:// MRL to a local filesystem path, percent-
// decoding it. Non-file schemes return "".
func ToLocalPath(mrl string) string {
	if Scheme(mrl) != "file" {
		return ""
	}
	rest := strings.TrimPrefix(mrl, "file://")
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return rest
	}
	return decoded
}

// FromLocalPath builds a file:// MRL from an absolute local filesystem
// path, percent-encoding reserved characters in each path segment.
func FromLocalPath(localPath string) string {
	localPath = strings.TrimPrefix(localPath, "/")
	segments := strings.Split(localPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file:///" + strings.Join(segments, "/")
}

// JoinMRL appends a percent-encoded child segment to a directory MRL.
func JoinMRL(dirMRL, childName string) string {
	return strings.TrimSuffix(dirMRL, "/") + "/" + url.PathEscape(childName)
}

// ResolveMRL is RemovePath's inverse: it reattaches a mountpoint-relative
// path (as stored for a removable device's Folder/File rows) to
// mountpointMRL, the device's current mount location. path is already a
// suffix of a once-valid MRL, so its segments are already percent-encoded;
// it is joined as-is rather than re-escaped. A path that is already a full
// MRL (non-removable device) is returned unchanged.
func ResolveMRL(mountpointMRL, path string) string {
	if Scheme(path) != "" {
		return path
	}
	return strings.TrimSuffix(mountpointMRL, "/") + "/" + path
}
