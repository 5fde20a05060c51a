package domain

import "strings"

// VirtualIDPrefix is the sentinel that marks an opaque virtual module id. The
// leading NUL byte cannot occur in any path or specifier the bundler would
// otherwise hand us, so prefixed ids never collide with real module ids.
const VirtualIDPrefix = "\x00mod:"

// virtualIDSep separates the fields embedded in a virtual id. It is escaped
// inside field values, together with the escape character itself and NUL.
const virtualIDSep = ':'

// VirtualModule is the metadata carried by a virtual module id: enough to
// load the module without resolving it again.
type VirtualModule struct {
	MediaType MediaType
	Specifier string
	LocalPath string
}

// EncodeVirtualID produces the opaque loadable id for a resolved module.
// The encoding is lossless for arbitrary specifier and path values, including
// ones containing the separator or escape characters.
func EncodeVirtualID(mediaType MediaType, specifier, localPath string) string {
	var b strings.Builder
	b.Grow(len(VirtualIDPrefix) + len(mediaType) + len(specifier) + len(localPath) + 2)
	b.WriteString(VirtualIDPrefix)
	b.WriteString(string(mediaType))
	b.WriteByte(virtualIDSep)
	writeEscaped(&b, specifier)
	b.WriteByte(virtualIDSep)
	writeEscaped(&b, localPath)
	return b.String()
}

// ParseVirtualID decodes a virtual module id previously produced by
// EncodeVirtualID. It returns ok=false for any string lacking the sentinel
// prefix or otherwise not well formed.
func ParseVirtualID(id string) (VirtualModule, bool) {
	rest, found := strings.CutPrefix(id, VirtualIDPrefix)
	if !found {
		return VirtualModule{}, false
	}

	parts := strings.SplitN(rest, string(virtualIDSep), 3)
	if len(parts) != 3 {
		return VirtualModule{}, false
	}

	specifier, ok := unescape(parts[1])
	if !ok {
		return VirtualModule{}, false
	}
	localPath, ok := unescape(parts[2])
	if !ok {
		return VirtualModule{}, false
	}

	return VirtualModule{
		MediaType: MediaType(parts[0]),
		Specifier: specifier,
		LocalPath: localPath,
	}, true
}

const hexDigits = "0123456789ABCDEF"

// writeEscaped writes s with '%', ':' and NUL percent-escaped so the field
// boundaries of the virtual id stay unambiguous.
func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' || c == virtualIDSep || c == 0 {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xF])
			continue
		}
		b.WriteByte(c)
	}
}

func unescape(s string) (string, bool) {
	if !strings.ContainsRune(s, '%') {
		return s, true
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", false
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", false
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), true
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}
