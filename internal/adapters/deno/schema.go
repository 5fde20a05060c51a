package deno

import (
	"encoding/json"

	"go.trai.ch/modbridge/internal/core/domain"
)

// snapshotDTO mirrors the JSON document the inspection command prints on
// stdout. Only the fields the bridge consumes are declared.
type snapshotDTO struct {
	Version   int               `json:"version"`
	Roots     []string          `json:"roots"`
	Redirects map[string]string `json:"redirects"`
	Modules   []moduleDTO       `json:"modules"`
}

// moduleDTO is one tagged entry of the modules array. The wire kind selects
// which fields are meaningful; error entries carry no kind at all.
type moduleDTO struct {
	Kind         string   `json:"kind"`
	Specifier    string   `json:"specifier"`
	Local        string   `json:"local"`
	MediaType    string   `json:"mediaType"`
	Size         int64    `json:"size"`
	Dependencies []depDTO `json:"dependencies"`
	PackageID    string   `json:"packageId"`
	ModuleName   string   `json:"moduleName"`
	Error        string   `json:"error"`
}

type depDTO struct {
	Specifier string  `json:"specifier"`
	Code      codeDTO `json:"code"`
}

type codeDTO struct {
	Specifier string `json:"specifier"`
}

const (
	kindEsm    = "esm"
	kindPkg    = "pkg"
	kindNative = "native"
)

// parseSnapshot decodes the tool's stdout into a domain snapshot.
func parseSnapshot(data []byte) (*domain.GraphSnapshot, error) {
	var dto snapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}

	snap := &domain.GraphSnapshot{
		Roots:     dto.Roots,
		Redirects: dto.Redirects,
		Modules:   make([]domain.ModuleRecord, 0, len(dto.Modules)),
	}
	if snap.Redirects == nil {
		snap.Redirects = map[string]string{}
	}

	for _, m := range dto.Modules {
		snap.Modules = append(snap.Modules, m.toDomain())
	}
	return snap, nil
}

func (m moduleDTO) toDomain() domain.ModuleRecord {
	if m.Error != "" {
		return domain.ErrorModule{Specifier: m.Specifier, Message: m.Error}
	}

	switch m.Kind {
	case kindEsm:
		deps := make([]domain.Dependency, 0, len(m.Dependencies))
		for _, d := range m.Dependencies {
			deps = append(deps, domain.Dependency{
				RelativePath:      d.Specifier,
				ResolvedSpecifier: d.Code.Specifier,
			})
		}
		return domain.EsmModule{
			Specifier:    m.Specifier,
			LocalPath:    m.Local,
			MediaType:    domain.MediaType(m.MediaType),
			Size:         m.Size,
			Dependencies: deps,
		}
	case kindPkg:
		return domain.ForeignPackageModule{
			Specifier: m.Specifier,
			PackageID: m.PackageID,
		}
	case kindNative:
		return domain.NativeModule{
			Specifier:  m.Specifier,
			ModuleName: m.ModuleName,
		}
	default:
		// Entries the tool may grow in future versions are kept as error
		// records so a root resolution against them fails loudly instead of
		// vanishing from the graph.
		return domain.ErrorModule{
			Specifier: m.Specifier,
			Message:   "unsupported module kind: " + m.Kind,
		}
	}
}
