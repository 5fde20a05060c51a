package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/modbridge/internal/core/domain"
)

func TestVirtualID_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		mediaType domain.MediaType
		specifier string
		localPath string
	}{
		{
			name:      "plain typescript module",
			mediaType: domain.MediaTypeScript,
			specifier: "file:///app/src/main.ts",
			localPath: "/app/src/main.ts",
		},
		{
			name:      "remote module with query",
			mediaType: domain.MediaJavaScript,
			specifier: "https://example.com/mod.js?version=2",
			localPath: "/home/user/.cache/deps/https/example.com/abcdef",
		},
		{
			name:      "specifier containing the separator",
			mediaType: domain.MediaTSX,
			specifier: "https://example.com:8443/x.tsx",
			localPath: "/tmp/cache/x.tsx",
		},
		{
			name:      "values containing the escape character",
			mediaType: domain.MediaJSX,
			specifier: "file:///app/100%25/mod.jsx",
			localPath: "/app/100%/mod.jsx",
		},
		{
			name:      "escape and separator mixed",
			mediaType: domain.MediaJson,
			specifier: "pkg:/weird%name@1.0.0",
			localPath: "C:\\cache\\weird%:name.json",
		},
		{
			name:      "empty local path",
			mediaType: domain.MediaTypeScript,
			specifier: "https://example.com/virtual.ts",
			localPath: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := domain.EncodeVirtualID(tt.mediaType, tt.specifier, tt.localPath)

			parsed, ok := domain.ParseVirtualID(id)
			require.True(t, ok)
			assert.Equal(t, tt.mediaType, parsed.MediaType)
			assert.Equal(t, tt.specifier, parsed.Specifier)
			assert.Equal(t, tt.localPath, parsed.LocalPath)
		})
	}
}

func TestVirtualID_SentinelPrefix(t *testing.T) {
	id := domain.EncodeVirtualID(domain.MediaTypeScript, "file:///a.ts", "/a.ts")
	assert.Equal(t, byte(0), id[0], "virtual ids must start with a non-printable sentinel")
}

func TestParseVirtualID_RejectsNonVirtualIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"plain path", "/app/src/main.ts"},
		{"url specifier", "https://example.com/mod.ts"},
		{"empty string", ""},
		{"sentinel without fields", "\x00mod:"},
		{"sentinel with too few fields", "\x00mod:TypeScript"},
		{"bad escape sequence", "\x00mod:TypeScript:%ZZ:/a.ts"},
		{"truncated escape", "\x00mod:TypeScript:abc%2:/a.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := domain.ParseVirtualID(tt.id)
			assert.False(t, ok)
		})
	}
}
