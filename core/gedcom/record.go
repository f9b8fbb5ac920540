package gedcom

import "strings"

// Record és un node de l'arbre GEDCOM: nivell, xref opcional, tag i valor.
type Record struct {
	Level    int
	Xref     string
	Tag      string
	Value    string
	Line     int
	Children []*Record
}

// Child retorna el primer fill amb el tag indicat.
func (r *Record) Child(tag string) *Record {
	if r == nil {
		return nil
	}
	for _, c := range r.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildrenByTag retorna tots els fills amb el tag indicat, en ordre de fitxer.
func (r *Record) ChildrenByTag(tag string) []*Record {
	if r == nil {
		return nil
	}
	var out []*Record
	for _, c := range r.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// ChildValue retorna el text del primer fill amb el tag (CONC/CONT inclosos).
func (r *Record) ChildValue(tag string) string {
	return strings.TrimSpace(r.Child(tag).Text())
}

// Text retorna el valor unint les línies de continuació CONC i CONT.
func (r *Record) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.Value)
	for _, c := range r.Children {
		switch c.Tag {
		case "CONC":
			b.WriteString(c.Value)
		case "CONT":
			b.WriteByte('\n')
			b.WriteString(c.Value)
		}
	}
	return b.String()
}

// IsPointer indica si el valor és una referència @X@.
func (r *Record) IsPointer() bool {
	return r != nil && isXref(strings.TrimSpace(r.Value))
}

func isXref(v string) bool {
	return len(v) >= 3 && strings.HasPrefix(v, "@") && strings.HasSuffix(v, "@") && !strings.HasPrefix(v, "@#")
}

// Walk recorre el subarbre en preordre.
func (r *Record) Walk(fn func(*Record)) {
	if r == nil {
		return
	}
	fn(r)
	for _, c := range r.Children {
		c.Walk(fn)
	}
}
