package cachefile

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// fingerprintFiles are the resolver-relevant configuration files of a
// working directory. A change to any of them (import map edits, lockfile
// updates, new package manifests) invalidates the persisted cache, since the
// canonical answers may have shifted.
var fingerprintFiles = []string{
	"deno.json",
	"deno.jsonc",
	"deno.lock",
	"import_map.json",
	"package.json",
}

// Fingerprint computes the staleness key for a working directory: an xxhash
// over name, size and mtime of each present fingerprint file. Absent files
// contribute only their name, so creating one later changes the key.
func Fingerprint(workingDir string) uint64 {
	h := xxhash.New()
	var buf [16]byte

	for _, name := range fingerprintFiles {
		_, _ = h.WriteString(name)
		info, err := os.Stat(filepath.Join(workingDir, name))
		if err != nil {
			continue
		}
		binary.LittleEndian.PutUint64(buf[:8], uint64(info.Size()))
		binary.LittleEndian.PutUint64(buf[8:], uint64(info.ModTime().UnixNano()))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
