// Package sanitize makes files safe for MrBayes, which aborts on any byte
// outside 7-bit ASCII.
package sanitize

import (
	"fmt"
	"os"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"phylorun/internal/stageerr"
)

// nonASCII matches every code point above 0x7F. Invalid UTF-8 decodes as
// U+FFFD and is dropped with the rest.
var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

// ASCII returns s with every non-ASCII character removed. Removal is silent
// and lossy.
func ASCII(s string) string {
	out, _, err := transform.String(runes.Remove(nonASCII), s)
	if err != nil {
		// runes.Remove never fails on a complete input.
		panic(err)
	}
	return out
}

// StripNonASCII rewrites path keeping only its ASCII characters. An empty or
// unreadable file is an empty-input error.
func StripNonASCII(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return stageerr.EmptyInputCause(path, err, "failed to read: %s or is empty", path)
	}
	if len(data) == 0 {
		return stageerr.EmptyInput(path, "failed to read: %s or is empty", path)
	}
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(ASCII(string(data))), st.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
