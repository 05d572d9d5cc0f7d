// Package export serializes finished relief solids to interchange CAD
// files: binary STL for the solid itself and a DXF drawing of the pattern
// footprint. Filenames are derived from the encoded message.
package export

import "strings"

// SafeName sanitizes a message into a filename-safe identifier:
// alphanumerics pass through, everything else becomes '_'. An empty or
// fully-sanitized-away message falls back to "relief".
func SafeName(message string) string {
	var b strings.Builder
	for _, r := range message {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if strings.Trim(name, "_") == "" {
		return "relief"
	}
	return name
}
