// Package charset converts between Go strings and the byte encodings named by
// MIME charset parameters, using the IANA registry from golang.org/x/text.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Default is the charset assumed for text parts that do not declare one.
const Default = "UTF-8"

// Lookup returns the encoding registered for name. us-ascii, which the index
// knows but cannot provide, is served by UTF-8 since it is a strict subset.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "us-ascii") || strings.EqualFold(name, "ascii") {
		return unicode.UTF8, nil
	}

	e, err := ianaindex.MIME.Encoding(name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("no encoding found for charset %q", name)
	}
	return e, nil
}

// Decode converts b from the named charset into a string. Bytes invalid in
// the source charset become U+FFFD.
func Decode(name string, b []byte) (string, error) {
	e, err := Lookup(name)
	if err != nil {
		return "", err
	}

	out, err := e.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return strings.ToValidUTF8(string(out), "�"), nil
}

// DecodeLenient is Decode that falls back to reading b as UTF-8 when the
// charset is unknown or the bytes cannot be decoded.
func DecodeLenient(name string, b []byte) string {
	s, err := Decode(name, b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return s
}

// Encode converts s into the named charset. Characters the charset cannot
// represent are replaced by the charset's substitution character.
func Encode(name, s string) ([]byte, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	out, err := encoding.ReplaceUnsupported(e.NewEncoder()).String(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return []byte(out), nil
}
