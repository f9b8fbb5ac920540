package gedcom

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnreadableEncoding indica que el contingut no és text GEDCOM llegible.
var ErrUnreadableEncoding = errors.New("codificació GEDCOM il·legible")

var (
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// Decode converteix els bytes del fitxer a text UTF-8. Accepta UTF-8 (amb o sense BOM),
// UTF-16 amb BOM i, com a últim recurs, Windows-1252 (ANSI/ANSEL aproximat).
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if !IsText(data) {
		return "", errors.Wrapf(ErrUnreadableEncoding, "tipus detectat %s", mimetype.Detect(data).String())
	}
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}
	if bytes.HasPrefix(data, utf16LEBOM) || bytes.HasPrefix(data, utf16BEBOM) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", errors.Wrap(ErrUnreadableEncoding, err.Error())
		}
		return string(out), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrap(ErrUnreadableEncoding, err.Error())
	}
	return string(out), nil
}

// IsText indica si mimetype reconeix els bytes com a text.
func IsText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
