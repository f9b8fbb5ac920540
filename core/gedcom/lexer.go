package gedcom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxLevel és el nivell més profund que acceptem (dues xifres).
const MaxLevel = 99

const maxWarnings = 20

var lineRe = regexp.MustCompile(`^(\d{1,2})\s+(?:(@[^@\s]+@)\s+)?([A-Za-z0-9_]+)(?:\s(.*))?$`)

// RecordSet és el resultat de tokenitzar un fitxer: arrels de nivell 0 i diagnòstics.
type RecordSet struct {
	Roots    []*Record
	Lines    int
	Unparsed int
	Warnings []string
}

// ParseRecords construeix l'arbre de registres amb una pila per nivells.
// Les línies que no encaixen amb la gramàtica es salten i es compten.
func ParseRecords(content string) RecordSet {
	var set RecordSet
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var stack []*Record
	for i, raw := range strings.Split(content, "\n") {
		lineNo := i + 1
		line := strings.TrimLeft(raw, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		set.Lines++
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			set.skip(lineNo, "format de línia invàlid")
			continue
		}
		level, err := strconv.Atoi(m[1])
		if err != nil || level > MaxLevel {
			set.skip(lineNo, "nivell invàlid")
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		rec := &Record{Level: level, Xref: m[2], Tag: strings.ToUpper(m[3]), Value: m[4], Line: lineNo}
		if level == 0 {
			set.Roots = append(set.Roots, rec)
			stack = append(stack[:0], rec)
			continue
		}
		if len(stack) == 0 || stack[len(stack)-1].Level != level-1 {
			set.skip(lineNo, fmt.Sprintf("salt de nivell a %d sense pare", level))
			continue
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, rec)
		stack = append(stack, rec)
	}
	return set
}

func (s *RecordSet) skip(lineNo int, reason string) {
	s.Unparsed++
	s.Warnings = appendWarning(s.Warnings, fmt.Sprintf("línia %d: %s", lineNo, reason))
}

func appendWarning(list []string, msg string) []string {
	if len(list) >= maxWarnings {
		return list
	}
	return append(list, msg)
}
