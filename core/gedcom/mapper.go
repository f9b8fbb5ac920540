package gedcom

import (
	"fmt"
	"strings"
)

var individualEventTags = tagSet(
	"BIRT", "CHR", "DEAT", "BURI", "CREM", "ADOP", "BAPM", "BARM", "BASM", "BLES",
	"CHRA", "CONF", "FCOM", "ORDN", "NATU", "EMIG", "IMMI", "CENS", "PROB", "WILL",
	"GRAD", "RETI", "EVEN", "RESI", "OCCU", "EDUC", "RELI", "TITL", "NATI", "CAST",
	"DSCR", "FACT", "PROP", "SSN", "IDNO", "NCHI", "NMR",
)

var familyEventTags = tagSet(
	"MARR", "MARB", "MARC", "MARL", "MARS", "ENGA", "DIV", "DIVF", "ANUL", "CENS",
	"EVEN", "RESI",
)

func tagSet(tags ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}

// MapRecords recorre els registres de nivell 0 i construeix les entitats.
func MapRecords(roots []*Record) *Parsed {
	p := NewParsed()
	for _, r := range roots {
		switch r.Tag {
		case "HEAD":
			p.Header = mapHeader(r)
			continue
		case "TRLR":
			continue
		case "INDI", "FAM", "SOUR", "NOTE", "REPO", "OBJE":
		default:
			p.Skipped[r.Tag]++
			continue
		}
		if !isXref(r.Xref) {
			p.Skipped[r.Tag]++
			p.warn(fmt.Sprintf("línia %d: registre %s sense xref", r.Line, r.Tag))
			continue
		}
		var added bool
		switch r.Tag {
		case "INDI":
			added = p.AddIndividual(mapIndividual(r))
		case "FAM":
			added = p.AddFamily(mapFamily(p, r))
		case "SOUR":
			added = p.AddSource(mapSource(r))
		case "NOTE":
			added = p.AddNote(mapNote(r))
		case "REPO":
			added = p.AddRepository(mapRepository(r))
		case "OBJE":
			added = p.AddMedia(mapMedia(r))
		}
		if !added {
			p.warn(fmt.Sprintf("línia %d: xref %s duplicada, es manté la primera", r.Line, r.Xref))
		}
	}
	return p
}

func mapHeader(r *Record) Header {
	return Header{
		Source:   r.ChildValue("SOUR"),
		Version:  r.Child("GEDC").ChildValue("VERS"),
		Charset:  strings.ToUpper(r.ChildValue("CHAR")),
		Language: r.ChildValue("LANG"),
	}
}

func mapIndividual(r *Record) *Individual {
	ind := &Individual{Xref: r.Xref, Sex: SexUnknown}
	for _, c := range r.Children {
		switch c.Tag {
		case "NAME":
			name := mapName(c)
			if len(ind.Names) == 0 {
				ind.FirstName, ind.LastName = name.Given, name.Surname
			}
			ind.Names = append(ind.Names, name)
		case "SEX":
			ind.Sex = NormalizeSex(c.Value)
			keepStructure(&ind.AdditionalData, c)
		case "FAMC":
			ind.FamilyChildXrefs = addPointer(ind.FamilyChildXrefs, &ind.AdditionalData, c)
		case "FAMS":
			ind.FamilySpouseXrefs = addPointer(ind.FamilySpouseXrefs, &ind.AdditionalData, c)
		case "SOUR":
			ind.SourceXrefs = addPointer(ind.SourceXrefs, &ind.AdditionalData, c)
		case "OBJE":
			ind.MediaXrefs = addPointer(ind.MediaXrefs, &ind.AdditionalData, c)
		case "NOTE":
			ind.NoteXrefs, ind.Notes = addNote(ind.NoteXrefs, ind.Notes, &ind.AdditionalData, c)
		default:
			if _, ok := individualEventTags[c.Tag]; ok {
				ind.Events = append(ind.Events, mapEvent(c))
				continue
			}
			ind.AdditionalData.Add(c)
		}
	}
	return ind
}

func mapName(r *Record) PersonalName {
	given, surname, suffix := SplitName(r.Value)
	name := PersonalName{Full: collapseSpaces(r.Value)}
	for _, c := range r.Children {
		switch c.Tag {
		case "GIVN":
			if given == "" {
				given = collapseSpaces(c.Value)
			}
		case "SURN":
			if surname == "" {
				surname = collapseSpaces(c.Value)
			}
		case "NSFX":
			if suffix == "" {
				suffix = collapseSpaces(c.Value)
			}
		default:
			name.AdditionalData.Add(c)
		}
	}
	name.Given, name.Surname, name.Suffix = given, surname, suffix
	if name.Full == "" {
		name.Full = FormatName(given, surname, suffix)
	}
	return name
}

func mapEvent(r *Record) Event {
	ev := Event{Tag: r.Tag, Description: strings.TrimSpace(r.Text())}
	for _, c := range r.Children {
		switch c.Tag {
		case "CONC", "CONT":
		case "DATE":
			ev.Date = NormalizeDate(c.Value)
			keepStructure(&ev.AdditionalData, c)
		case "PLAC":
			ev.Place = strings.TrimSpace(c.Text())
			keepStructure(&ev.AdditionalData, c)
		case "TYPE":
			ev.Type = strings.TrimSpace(c.Text())
			keepStructure(&ev.AdditionalData, c)
		case "SOUR":
			ev.SourceXrefs = addPointer(ev.SourceXrefs, &ev.AdditionalData, c)
		case "NOTE":
			if c.IsPointer() {
				ev.NoteXrefs = addPointer(ev.NoteXrefs, &ev.AdditionalData, c)
				continue
			}
			ev.AdditionalData.Add(c)
		default:
			ev.AdditionalData.Add(c)
		}
	}
	if ev.Date.Qualifier == "" {
		ev.Date = NormalizedDate{Qualifier: QualifierEmpty}
	}
	return ev
}

func mapFamily(p *Parsed, r *Record) *Family {
	fam := &Family{Xref: r.Xref}
	seen := map[string]struct{}{}
	for _, c := range r.Children {
		switch c.Tag {
		case "HUSB", "WIFE":
			target := &fam.HusbandXref
			if c.Tag == "WIFE" {
				target = &fam.WifeXref
			}
			if !c.IsPointer() || *target != "" {
				fam.AdditionalData.Add(c)
				continue
			}
			*target = strings.TrimSpace(c.Value)
			keepStructure(&fam.AdditionalData, c)
		case "CHIL":
			if !c.IsPointer() {
				fam.AdditionalData.Add(c)
				continue
			}
			xref := strings.TrimSpace(c.Value)
			if _, dup := seen[xref]; dup {
				p.warn(fmt.Sprintf("línia %d: fill %s repetit a %s", c.Line, xref, fam.Xref))
				continue
			}
			seen[xref] = struct{}{}
			fam.ChildXrefs = addPointer(fam.ChildXrefs, &fam.AdditionalData, c)
		case "SOUR":
			fam.SourceXrefs = addPointer(fam.SourceXrefs, &fam.AdditionalData, c)
		case "OBJE":
			fam.MediaXrefs = addPointer(fam.MediaXrefs, &fam.AdditionalData, c)
		case "NOTE":
			fam.NoteXrefs, fam.Notes = addNote(fam.NoteXrefs, fam.Notes, &fam.AdditionalData, c)
		default:
			if _, ok := familyEventTags[c.Tag]; ok {
				fam.Events = append(fam.Events, mapEvent(c))
				continue
			}
			fam.AdditionalData.Add(c)
		}
	}
	return fam
}

func mapSource(r *Record) *Source {
	src := &Source{Xref: r.Xref}
	for _, c := range r.Children {
		switch c.Tag {
		case "TITL":
			src.Title = strings.TrimSpace(c.Text())
		case "AUTH":
			src.Author = strings.TrimSpace(c.Text())
		case "PUBL":
			src.Publication = strings.TrimSpace(c.Text())
		case "ABBR":
			src.Abbreviation = strings.TrimSpace(c.Text())
		case "TEXT":
			src.Text = strings.TrimSpace(c.Text())
		case "REPO":
			if !c.IsPointer() || src.RepositoryXref != "" {
				src.AdditionalData.Add(c)
				continue
			}
			src.RepositoryXref = strings.TrimSpace(c.Value)
			src.CallNumber = c.ChildValue("CALN")
			if len(c.Children) > 0 {
				src.AdditionalData.Add(c)
			}
			continue
		case "NOTE":
			if c.IsPointer() {
				src.NoteXrefs = addPointer(src.NoteXrefs, &src.AdditionalData, c)
				continue
			}
			src.AdditionalData.Add(c)
			continue
		default:
			src.AdditionalData.Add(c)
			continue
		}
		keepStructure(&src.AdditionalData, c)
	}
	return src
}

func mapNote(r *Record) *Note {
	n := &Note{Xref: r.Xref, Text: strings.TrimSpace(r.Text())}
	for _, c := range r.Children {
		if c.Tag == "CONC" || c.Tag == "CONT" {
			continue
		}
		n.AdditionalData.Add(c)
	}
	return n
}

func mapRepository(r *Record) *Repository {
	repo := &Repository{Xref: r.Xref}
	for _, c := range r.Children {
		var field *string
		switch c.Tag {
		case "NAME":
			field = &repo.Name
		case "ADDR":
			field = &repo.Address
		case "PHON":
			field = &repo.Phone
		case "EMAIL":
			field = &repo.Email
		case "WWW":
			field = &repo.Website
		default:
			repo.AdditionalData.Add(c)
			continue
		}
		*field = strings.TrimSpace(c.Text())
		keepStructure(&repo.AdditionalData, c)
	}
	return repo
}

func mapMedia(r *Record) *Media {
	m := &Media{Xref: r.Xref}
	for _, c := range r.Children {
		switch c.Tag {
		case "FILE":
			m.File = strings.TrimSpace(c.Value)
			if f := c.ChildValue("FORM"); f != "" {
				m.Format = f
			}
			if t := c.ChildValue("TITL"); t != "" {
				m.Title = t
			}
			keepStructure(&m.AdditionalData, c)
		case "FORM":
			m.Format = strings.TrimSpace(c.Value)
			keepStructure(&m.AdditionalData, c)
		case "TITL":
			m.Title = strings.TrimSpace(c.Text())
			keepStructure(&m.AdditionalData, c)
		default:
			m.AdditionalData.Add(c)
		}
	}
	return m
}

// addPointer afegeix la xref d'un punter; si porta subestructura també la guarda
// sencera a AdditionalData perquè l'exportació no la perdi.
func addPointer(list []string, extra *AdditionalData, c *Record) []string {
	if !c.IsPointer() {
		extra.Add(c)
		return list
	}
	keepStructure(extra, c)
	return append(list, strings.TrimSpace(c.Value))
}

func addNote(xrefs, notes []string, extra *AdditionalData, c *Record) ([]string, []string) {
	if c.IsPointer() {
		return addPointer(xrefs, extra, c), notes
	}
	if hasStructure(c) {
		extra.Add(c)
		return xrefs, notes
	}
	return xrefs, append(notes, strings.TrimSpace(c.Text()))
}

func keepStructure(extra *AdditionalData, c *Record) {
	if hasStructure(c) {
		extra.Add(c)
	}
}

func hasStructure(r *Record) bool {
	for _, c := range r.Children {
		if c.Tag != "CONC" && c.Tag != "CONT" {
			return true
		}
	}
	return false
}
