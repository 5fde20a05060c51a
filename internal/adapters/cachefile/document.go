package cachefile

import (
	"encoding/json"
	"slices"

	"go.trai.ch/modbridge/internal/core/domain"
	"go.trai.ch/zerr"
)

// document is the on-disk shape of the session cache: three arrays of
// [key, value] pairs plus format metadata. Arrays keep the file diffable and
// the key order stable across saves.
type document struct {
	Version     int          `json:"version"`
	Fingerprint uint64       `json:"fingerprint"`
	Modules     []modulePair `json:"modules"`
	Memo        []stringPair `json:"memo"`
	Paths       []stringPair `json:"paths"`
}

// stringPair marshals as a two-element JSON array ["key","value"].
type stringPair struct {
	Key   string
	Value string
}

// MarshalJSON implements json.Marshaler.
func (p stringPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Key, p.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *stringPair) UnmarshalJSON(data []byte) error {
	var arr [2]string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	p.Key, p.Value = arr[0], arr[1]
	return nil
}

// modulePair marshals as ["canonical", {kind-tagged record}].
type modulePair struct {
	Key    string
	Record domain.ModuleRecord
}

// recordEnvelope tags a module record with its variant for round-tripping.
type recordEnvelope struct {
	Kind   string          `json:"kind"`
	Record json.RawMessage `json:"record"`
}

const (
	recordKindEsm     = "esm"
	recordKindForeign = "pkg"
	recordKindNative  = "native"
	recordKindError   = "error"
)

// MarshalJSON implements json.Marshaler.
func (p modulePair) MarshalJSON() ([]byte, error) {
	var kind string
	switch p.Record.(type) {
	case domain.EsmModule:
		kind = recordKindEsm
	case domain.ForeignPackageModule:
		kind = recordKindForeign
	case domain.NativeModule:
		kind = recordKindNative
	case domain.ErrorModule:
		kind = recordKindError
	default:
		return nil, zerr.With(zerr.New("unknown module record variant"), "canonical", p.Key)
	}

	raw, err := json.Marshal(p.Record)
	if err != nil {
		return nil, err
	}
	return json.Marshal([2]any{p.Key, recordEnvelope{Kind: kind, Record: raw}})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *modulePair) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &p.Key); err != nil {
		return err
	}

	var env recordEnvelope
	if err := json.Unmarshal(arr[1], &env); err != nil {
		return err
	}

	switch env.Kind {
	case recordKindEsm:
		var rec domain.EsmModule
		if err := json.Unmarshal(env.Record, &rec); err != nil {
			return err
		}
		p.Record = rec
	case recordKindForeign:
		var rec domain.ForeignPackageModule
		if err := json.Unmarshal(env.Record, &rec); err != nil {
			return err
		}
		p.Record = rec
	case recordKindNative:
		var rec domain.NativeModule
		if err := json.Unmarshal(env.Record, &rec); err != nil {
			return err
		}
		p.Record = rec
	case recordKindError:
		var rec domain.ErrorModule
		if err := json.Unmarshal(env.Record, &rec); err != nil {
			return err
		}
		p.Record = rec
	default:
		return zerr.With(zerr.New("unknown module record kind"), "kind", env.Kind)
	}
	return nil
}

// fromSnapshot converts the in-memory maps into the stable on-disk layout.
func fromSnapshot(snap *domain.CacheSnapshot) (*document, error) {
	doc := &document{
		Modules: make([]modulePair, 0, len(snap.Modules)),
		Memo:    make([]stringPair, 0, len(snap.Memo)),
		Paths:   make([]stringPair, 0, len(snap.Paths)),
	}

	for _, key := range sortedKeys(snap.Modules) {
		doc.Modules = append(doc.Modules, modulePair{Key: key, Record: snap.Modules[key]})
	}
	for _, key := range sortedKeys(snap.Memo) {
		doc.Memo = append(doc.Memo, stringPair{Key: key, Value: snap.Memo[key]})
	}
	for _, key := range sortedKeys(snap.Paths) {
		doc.Paths = append(doc.Paths, stringPair{Key: key, Value: snap.Paths[key]})
	}
	return doc, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (d *document) toSnapshot() (*domain.CacheSnapshot, error) {
	snap := &domain.CacheSnapshot{
		Modules:     make(map[string]domain.ModuleRecord, len(d.Modules)),
		Memo:        make(map[string]string, len(d.Memo)),
		Paths:       make(map[string]string, len(d.Paths)),
		Fingerprint: d.Fingerprint,
	}
	for _, p := range d.Modules {
		if p.Record == nil {
			return nil, zerr.New("module pair without record")
		}
		snap.Modules[p.Key] = p.Record
	}
	for _, p := range d.Memo {
		snap.Memo[p.Key] = p.Value
	}
	for _, p := range d.Paths {
		snap.Paths[p.Key] = p.Value
	}
	return snap, nil
}
