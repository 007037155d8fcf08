package vfs

import (
	"slices"
	"strings"
)

// supportedExtensions is the fixed, alphabetically-sorted set of audio/video
// container extensions the discoverer will create Media/File rows for.
// Kept sorted so IsSupportedExtension can binary-search it rather than walk
// a map, matching the spec's requirement of a "fixed and sorted" set.
var supportedExtensions = sortedExtensions([]string{
	"3gp", "a52", "aac", "ac3", "aiff", "amr", "amv", "aob", "ape", "asf",
	"avi", "divx", "dts", "flac", "flv", "m2ts", "m4a", "m4v", "mka", "mkv",
	"mov", "mp3", "mp4", "mpc", "mpeg", "mpg", "oga", "ogg", "ogm", "ogv",
	"opus", "rm", "rmvb", "spx", "ts", "vob", "wav", "webm", "wma", "wmv",
	"wv", "xa", "xm",
})

func sortedExtensions(exts []string) []string {
	out := make([]string, len(exts))
	copy(out, exts)
	slices.Sort(out)
	return out
}

// IsSupportedExtension reports whether ext (with or without a leading dot,
// any case) is in the discoverer's fixed supported-extension set.
func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	_, found := slices.BinarySearch(supportedExtensions, ext)
	return found
}

// SupportedExtensions returns a copy of the sorted supported-extension set.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

// videoExtensions is the subset of supportedExtensions that are video
// containers; everything else in the supported set is treated as audio by
// the tags and thumbnail parser services.
var videoExtensions = sortedExtensions([]string{
	"3gp", "amv", "asf", "avi", "divx", "flv", "m2ts", "m4v", "mkv", "mov",
	"mp4", "mpeg", "mpg", "ogm", "ogv", "rm", "rmvb", "ts", "vob", "webm",
	"wmv",
})

// IsVideoExtension reports whether ext is one of the video container
// extensions in the supported set.
func IsVideoExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	_, found := slices.BinarySearch(videoExtensions, ext)
	return found
}
