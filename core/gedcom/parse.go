package gedcom

import (
	"io"

	"github.com/pkg/errors"
)

// Parse tokenitza i mapeja el contingut. Un fitxer sense persones ni famílies
// retorna un Parsed buit; decidir si és acceptable és cosa del cridant.
func Parse(content string) *Parsed {
	set := ParseRecords(content)
	p := MapRecords(set.Roots)
	p.UnparsedLines = set.Unparsed
	warnings := append([]string{}, set.Warnings...)
	for _, w := range p.Warnings {
		warnings = appendWarning(warnings, w)
	}
	p.Warnings = warnings
	return p
}

// ParseBytes decodifica i parseja. Només falla si la codificació és il·legible.
func ParseBytes(data []byte) (*Parsed, error) {
	content, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Parse(content), nil
}

// ParseReader llegeix tot el contingut i el parseja.
func ParseReader(r io.Reader) (*Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "no puc llegir el contingut GEDCOM")
	}
	return ParseBytes(data)
}
