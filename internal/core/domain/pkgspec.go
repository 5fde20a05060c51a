package domain

import "strings"

// ForeignPackagePrefix marks a specifier that names a package from the
// foreign package ecosystem rather than the project's own module graph.
const ForeignPackagePrefix = "pkg:/"

// IsForeignPackage reports whether the specifier carries the foreign-registry
// marker.
func IsForeignPackage(specifier string) bool {
	return strings.HasPrefix(specifier, ForeignPackagePrefix)
}

// TranslateForeignPackage rewrites a foreign-package specifier into the
// bundler's native lookup form: the registry marker and the version pin are
// stripped while scope and subpath are preserved.
//
//	pkg:/name@version            -> name
//	pkg:/name@version/sub/path   -> name/sub/path
//	pkg:/@scope/name@ver         -> @scope/name
//	pkg:/@scope/name@ver/sub     -> @scope/name/sub
//
// The version segment may contain arbitrary non-'/' characters (semver
// ranges, tags) and is discarded verbatim. Specifiers without the marker are
// returned unchanged.
func TranslateForeignPackage(specifier string) string {
	rest, found := strings.CutPrefix(specifier, ForeignPackagePrefix)
	if !found {
		return specifier
	}

	var scope string
	if strings.HasPrefix(rest, "@") {
		// Scoped names keep their scope segment; only the version attached
		// to the unscoped name segment is removed.
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			scope, rest = rest[:i+1], rest[i+1:]
		}
	}

	head, subpath, hasSubpath := strings.Cut(rest, "/")
	name, _, _ := strings.Cut(head, "@")

	native := scope + name
	if hasSubpath {
		native += "/" + subpath
	}
	return native
}
