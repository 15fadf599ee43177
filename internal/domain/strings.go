package domain

import "unicode/utf8"

// RepairMojibake fixes names that were stored as UTF-8 bytes but read back as
// Latin-1 (e.g. "GÃ³mez" -> "Gómez"). Strings containing runes above 0xFF are
// already proper Unicode and are returned untouched, as is anything that does
// not decode cleanly.
func RepairMojibake(s string) string {
	if s == "" {
		return s
	}
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		buf = append(buf, byte(r))
	}
	if !utf8.Valid(buf) {
		return s
	}
	repaired := string(buf)
	// A pure-ASCII round trip is a no-op; only accept the rewrite when it
	// actually decoded multi-byte sequences.
	if repaired == s {
		return s
	}
	return repaired
}
