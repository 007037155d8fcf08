package vfs

import "testing"

func TestSchemeAndLocalPathRoundTrip(t *testing.T) {
	mrl := FromLocalPath("/music/Artist/Album/01 Track.mp3")
	if Scheme(mrl) != "file" {
		t.Fatalf("expected scheme file, got %q", Scheme(mrl))
	}
	if got := ToLocalPath(mrl); got != "/music/Artist/Album/01 Track.mp3" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestFileNameAndExtension(t *testing.T) {
	mrl := FromLocalPath("/a/video.AVI")
	if got := Extension(mrl); got != "avi" {
		t.Fatalf("expected lowercased extension avi, got %q", got)
	}
	if got := FileName(mrl); got != "video.AVI" {
		t.Fatalf("expected video.AVI, got %q", got)
	}
}

func TestRemovePath(t *testing.T) {
	mrl := "file:///mnt/usb/music/track.mp3"
	got := RemovePath(mrl, "file:///mnt/usb")
	if got != "music/track.mp3" {
		t.Fatalf("expected music/track.mp3, got %q", got)
	}
}

func TestIsSupportedExtensionCaseInsensitive(t *testing.T) {
	if !IsSupportedExtension("AVI") {
		t.Fatal("expected AVI to be supported")
	}
	if !IsSupportedExtension(".mp3") {
		t.Fatal("expected .mp3 to be supported")
	}
	if IsSupportedExtension("something") {
		t.Fatal("expected 'something' to be unsupported")
	}
}

func TestParentDirectory(t *testing.T) {
	mrl := "file:///a/b/c.mp4"
	if got := ParentDirectory(mrl); got != "file:///a/b" {
		t.Fatalf("expected file:///a/b, got %q", got)
	}
}
