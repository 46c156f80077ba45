package model

import (
	"path"
	"strings"
)

// Category partitions cached artifacts into coarse storage directories.
type Category string

const (
	CategoryManifest  Category = "manifests"
	CategoryInstaller Category = "installers"
	CategoryArchive   Category = "archives"
	CategoryPackage   Category = "packages"
	CategoryScript    Category = "scripts"
	CategoryLibrary   Category = "libraries"
	CategoryUnknown   Category = "unknown"
)

// Categories lists every valid category in presentation order.
func Categories() []Category {
	return []Category{
		CategoryManifest,
		CategoryInstaller,
		CategoryArchive,
		CategoryPackage,
		CategoryScript,
		CategoryLibrary,
		CategoryUnknown,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryManifest, CategoryInstaller, CategoryArchive, CategoryPackage,
		CategoryScript, CategoryLibrary, CategoryUnknown:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// CategoryForURL infers a category from the filename extension of a URL's path
// component. URLs without a recognizable extension map to CategoryUnknown.
func CategoryForURL(rawURL string) Category {
	base := rawURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	switch strings.ToLower(path.Ext(path.Base(base))) {
	case ".json", ".sums", ".sha256", ".sha512", ".asc", ".sig":
		return CategoryManifest
	case ".msi", ".exe", ".dmg", ".pkg":
		return CategoryInstaller
	case ".zip", ".tar", ".gz", ".tgz", ".xz", ".bz2", ".7z":
		return CategoryArchive
	case ".deb", ".rpm", ".vsix", ".nupkg", ".whl", ".gem", ".crate":
		return CategoryPackage
	case ".sh", ".ps1", ".psm1", ".bat", ".cmd", ".py":
		return CategoryScript
	case ".dll", ".so", ".dylib", ".jar":
		return CategoryLibrary
	default:
		return CategoryUnknown
	}
}
