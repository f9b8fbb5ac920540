package gedcom

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ExportSource és el nom que escrivim a HEAD.SOUR.
const ExportSource = "ArbreGedcom"

const maxLineValue = 200

type encoder struct {
	w   *bufio.Writer
	err error
}

// Encode escriu el Parsed en format GEDCOM 5.5.1, incloent AdditionalData.
func Encode(w io.Writer, p *Parsed) error {
	e := &encoder{w: bufio.NewWriter(w)}
	e.header(p.Header)
	for _, ind := range p.Individuals {
		e.individual(ind)
	}
	for _, fam := range p.Families {
		e.family(fam)
	}
	for _, src := range p.Sources {
		e.source(src)
	}
	for _, repo := range p.Repositories {
		e.repository(repo)
	}
	for _, n := range p.Notes {
		e.note(n)
	}
	for _, m := range p.Media {
		e.media(m)
	}
	e.line(0, "", "TRLR", "")
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func (e *encoder) header(h Header) {
	e.line(0, "", "HEAD", "")
	e.line(1, "", "SOUR", ExportSource)
	e.line(1, "", "GEDC", "")
	e.line(2, "", "VERS", "5.5.1")
	e.line(2, "", "FORM", "LINEAGE-LINKED")
	e.line(1, "", "CHAR", "UTF-8")
	if h.Language != "" {
		e.line(1, "", "LANG", h.Language)
	}
}

func (e *encoder) individual(ind *Individual) {
	rest := ind.AdditionalData.clone()
	e.line(0, ind.Xref, "INDI", "")
	for _, n := range ind.Names {
		e.line(1, "", "NAME", n.Full)
		e.extra(2, n.AdditionalData)
	}
	e.scalar(1, rest, "SEX", ind.Sex)
	for _, ev := range ind.Events {
		e.event(1, ev)
	}
	e.pointers(1, rest, "FAMC", ind.FamilyChildXrefs)
	e.pointers(1, rest, "FAMS", ind.FamilySpouseXrefs)
	e.pointers(1, rest, "SOUR", ind.SourceXrefs)
	e.pointers(1, rest, "OBJE", ind.MediaXrefs)
	e.pointers(1, rest, "NOTE", ind.NoteXrefs)
	for _, text := range ind.Notes {
		e.line(1, "", "NOTE", text)
	}
	e.extra(1, rest)
}

func (e *encoder) family(fam *Family) {
	rest := fam.AdditionalData.clone()
	e.line(0, fam.Xref, "FAM", "")
	if fam.HusbandXref != "" {
		e.pointers(1, rest, "HUSB", []string{fam.HusbandXref})
	}
	if fam.WifeXref != "" {
		e.pointers(1, rest, "WIFE", []string{fam.WifeXref})
	}
	e.pointers(1, rest, "CHIL", fam.ChildXrefs)
	for _, ev := range fam.Events {
		e.event(1, ev)
	}
	e.pointers(1, rest, "SOUR", fam.SourceXrefs)
	e.pointers(1, rest, "OBJE", fam.MediaXrefs)
	e.pointers(1, rest, "NOTE", fam.NoteXrefs)
	for _, text := range fam.Notes {
		e.line(1, "", "NOTE", text)
	}
	e.extra(1, rest)
}

func (e *encoder) event(level int, ev Event) {
	rest := ev.AdditionalData.clone()
	e.line(level, "", ev.Tag, ev.Description)
	e.scalar(level+1, rest, "TYPE", ev.Type)
	e.scalar(level+1, rest, "DATE", ev.Date.String())
	e.scalar(level+1, rest, "PLAC", ev.Place)
	e.pointers(level+1, rest, "SOUR", ev.SourceXrefs)
	e.pointers(level+1, rest, "NOTE", ev.NoteXrefs)
	e.extra(level+1, rest)
}

func (e *encoder) source(src *Source) {
	rest := src.AdditionalData.clone()
	e.line(0, src.Xref, "SOUR", "")
	e.scalar(1, rest, "TITL", src.Title)
	e.scalar(1, rest, "AUTH", src.Author)
	e.scalar(1, rest, "PUBL", src.Publication)
	e.scalar(1, rest, "ABBR", src.Abbreviation)
	e.scalar(1, rest, "TEXT", src.Text)
	if src.RepositoryXref != "" {
		if v, ok := rest.takeValue("REPO", src.RepositoryXref); ok {
			e.value(1, "REPO", v)
		} else {
			e.line(1, "", "REPO", src.RepositoryXref)
			if src.CallNumber != "" {
				e.line(2, "", "CALN", src.CallNumber)
			}
		}
	}
	e.pointers(1, rest, "NOTE", src.NoteXrefs)
	e.extra(1, rest)
}

func (e *encoder) repository(repo *Repository) {
	rest := repo.AdditionalData.clone()
	e.line(0, repo.Xref, "REPO", "")
	e.scalar(1, rest, "NAME", repo.Name)
	e.scalar(1, rest, "ADDR", repo.Address)
	e.scalar(1, rest, "PHON", repo.Phone)
	e.scalar(1, rest, "EMAIL", repo.Email)
	e.scalar(1, rest, "WWW", repo.Website)
	e.extra(1, rest)
}

func (e *encoder) note(n *Note) {
	e.line(0, n.Xref, "NOTE", n.Text)
	e.extra(1, n.AdditionalData)
}

func (e *encoder) media(m *Media) {
	rest := m.AdditionalData.clone()
	e.line(0, m.Xref, "OBJE", "")
	e.scalar(1, rest, "FILE", m.File)
	e.scalar(1, rest, "FORM", m.Format)
	e.scalar(1, rest, "TITL", m.Title)
	e.extra(1, rest)
}

// scalar escriu el subarbre guardat si n'hi ha; si no, el valor tipat.
func (e *encoder) scalar(level int, rest AdditionalData, tag, value string) {
	if v, ok := rest.take(tag); ok {
		e.value(level, tag, v)
		return
	}
	if value != "" {
		e.line(level, "", tag, value)
	}
}

func (e *encoder) pointers(level int, rest AdditionalData, tag string, xrefs []string) {
	for _, x := range xrefs {
		if v, ok := rest.takeValue(tag, x); ok {
			e.value(level, tag, v)
			continue
		}
		e.line(level, "", tag, x)
	}
}

func (e *encoder) extra(level int, a AdditionalData) {
	for _, tag := range a.Keys() {
		for _, v := range a[tag] {
			e.value(level, tag, v)
		}
	}
}

// value escriu un subarbre opac tal com es va llegir.
func (e *encoder) value(level int, tag string, v AdditionalValue) {
	e.raw(level, "", tag, v.Value)
	e.extra(level+1, v.Children)
}

// line escriu un valor tipat partint-lo en CONT (salts) i CONC (longitud).
func (e *encoder) line(level int, xref, tag, value string) {
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		chunks := splitRunes(part, maxLineValue)
		for j, chunk := range chunks {
			switch {
			case i == 0 && j == 0:
				e.raw(level, xref, tag, chunk)
			case j == 0:
				e.raw(level+1, "", "CONT", chunk)
			default:
				e.raw(level+1, "", "CONC", chunk)
			}
		}
	}
}

func (e *encoder) raw(level int, xref, tag, value string) {
	if e.err != nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d ", level)
	if xref != "" {
		b.WriteString(xref)
		b.WriteByte(' ')
	}
	b.WriteString(tag)
	if value != "" {
		b.WriteByte(' ')
		b.WriteString(value)
	}
	b.WriteByte('\n')
	_, e.err = e.w.WriteString(b.String())
}

func splitRunes(s string, size int) []string {
	r := []rune(s)
	if len(r) <= size {
		return []string{s}
	}
	var out []string
	for len(r) > size {
		out = append(out, string(r[:size]))
		r = r[size:]
	}
	return append(out, string(r))
}
