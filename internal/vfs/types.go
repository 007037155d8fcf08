// Package vfs defines the pluggable filesystem abstraction the discoverer
// and device manager walk through: Factory, Directory, File, and Device.
// Only a local-filesystem implementation (internal/vfs/local) ships with
// this library — network filesystem factories are out of scope — but the
// discoverer itself depends only on these interfaces.
package vfs

import "time"

// Factory produces Directory, File, and Device handles for MRLs whose
// scheme it supports.
type Factory interface {
	// Supports reports whether this factory can handle the given scheme
	// (e.g. "file").
	Supports(scheme string) bool
	// IsNetwork reports whether resources produced by this factory live on
	// a network filesystem, where discovery may want different retry and
	// caching behavior.
	IsNetwork() bool
	// NewDirectory opens the directory named by mrl.
	NewDirectory(mrl string) (Directory, error)
	// NewFile opens the file named by mrl.
	NewFile(mrl string) (File, error)
	// NewDevice resolves the Device backing mrl.
	NewDevice(mrl string) (Device, error)
}

// Directory is a filesystem directory reachable through a Factory.
type Directory interface {
	MRL() string
	Files() ([]File, error)
	Dirs() ([]Directory, error)
	Device() (Device, error)
}

// File is a filesystem file reachable through a Factory.
type File interface {
	MRL() string
	Name() string
	Extension() string
	Size() int64
	LastModificationTime() time.Time
}

// Device is the filesystem device backing a Directory or File — a physical
// or logical volume, identified by a UUID stable across remounts.
type Device interface {
	UUID() string
	Scheme() string
	Mountpoint() string
	IsRemovable() bool
	IsPresent() bool
	// Refresh re-checks presence and mountpoint against the live system.
	Refresh() error
}
