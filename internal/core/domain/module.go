// Package domain contains core domain types for module resolution.
package domain

// MediaType identifies the content type of an ESM module as reported by the
// inspection tool.
type MediaType string

// Media types understood by the bundler bridge. Each constant is Media plus
// the wire value verbatim, so MediaTypeScript is Media + "TypeScript".
const (
	MediaTypeScript MediaType = "TypeScript"
	MediaTSX        MediaType = "TSX"
	MediaJavaScript MediaType = "JavaScript"
	MediaJSX        MediaType = "JSX"
	MediaJson       MediaType = "Json"
	MediaUnknown    MediaType = "Unknown"
)

// KnownMediaType reports whether m is one of the media types the bridge can
// hand to the bundler as loadable source.
func KnownMediaType(m MediaType) bool {
	switch m {
	case MediaTypeScript, MediaTSX, MediaJavaScript, MediaJSX, MediaJson:
		return true
	default:
		return false
	}
}

// Dependency is a single import edge of an ESM module. RelativePath is the
// specifier exactly as written in the source file; ResolvedSpecifier is the
// canonical specifier it resolves to.
type Dependency struct {
	RelativePath      string `json:"relativePath"`
	ResolvedSpecifier string `json:"resolvedSpecifier"`
}

// ModuleRecord is the tagged union of module shapes the inspection tool can
// report. Implementations are EsmModule, ForeignPackageModule, NativeModule
// and ErrorModule; the set is closed.
type ModuleRecord interface {
	// Canonical returns the canonical specifier the record is keyed by.
	Canonical() string

	moduleRecord()
}

// EsmModule is a plain ES module on disk, with its full ordered import list.
type EsmModule struct {
	Specifier    string       `json:"specifier"`
	LocalPath    string       `json:"local"`
	MediaType    MediaType    `json:"mediaType"`
	Size         int64        `json:"size"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// ForeignPackageModule is a module provided by the foreign package ecosystem
// rather than the project's own graph. NativeID is the specifier translated
// into the bundler's native namespace (see TranslateForeignPackage).
type ForeignPackageModule struct {
	Specifier string `json:"specifier"`
	PackageID string `json:"packageId"`
	NativeID  string `json:"nativeId,omitempty"`
}

// NativeModule is a module built into the external runtime itself.
type NativeModule struct {
	Specifier  string `json:"specifier"`
	ModuleName string `json:"moduleName"`
}

// ErrorModule records a specifier the inspection tool could not resolve.
type ErrorModule struct {
	Specifier string `json:"specifier"`
	Message   string `json:"error"`
}

// Canonical implements ModuleRecord.
func (m EsmModule) Canonical() string { return m.Specifier }

// Canonical implements ModuleRecord.
func (m ForeignPackageModule) Canonical() string { return m.Specifier }

// Canonical implements ModuleRecord.
func (m NativeModule) Canonical() string { return m.Specifier }

// Canonical implements ModuleRecord.
func (m ErrorModule) Canonical() string { return m.Specifier }

func (EsmModule) moduleRecord()            {}
func (ForeignPackageModule) moduleRecord() {}
func (NativeModule) moduleRecord()         {}
func (ErrorModule) moduleRecord()          {}
