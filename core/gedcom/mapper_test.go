package gedcom

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseMinimalIndividual(t *testing.T) {
	p := Parse("0 @I1@ INDI\n1 NAME John /Smith/\n1 SEX M")
	ind := p.Individual("@I1@")
	if ind == nil {
		t.Fatalf("no s'ha trobat @I1@")
	}
	if ind.FirstName != "John" || ind.LastName != "Smith" || ind.Sex != SexMale {
		t.Fatalf("persona inesperada: %+v", ind)
	}
	if len(p.Individuals) != 1 || len(p.Families) != 0 {
		t.Fatalf("esperava 1 persona i cap família")
	}
	if p.UnparsedLines != 0 {
		t.Fatalf("no hi hauria d'haver línies no interpretades")
	}
}

const sampleGedcom = `0 HEAD
1 SOUR Test
1 GEDC
2 VERS 5.5.1
1 CHAR utf-8
1 LANG Catalan
0 @I1@ INDI
1 NAME Joan /Puig/ Jr.
1 SEX x
1 OCCU Pagès
1 NOTE Primera línia
2 CONT Segona línia
0 @I1@ INDI
1 NAME Duplicat /Puig/
0 INDI
1 NAME Sense /Xref/
0 @U1@ SUBM
0 @F1@ FAM
1 HUSB @I1@
1 CHIL @I2@
1 CHIL @I2@
1 MARR
2 DATE ABT 1900
2 PLAC Girona
0 @S1@ SOUR
1 TITL Registre parroquial
1 REPO @R1@
2 CALN 42
0 @R1@ REPO
1 NAME Arxiu Diocesà
0 @O1@ OBJE
1 FILE foto.jpg
2 FORM jpg
0 TRLR
`

func TestMapRecords(t *testing.T) {
	p := Parse(sampleGedcom)

	if p.Header.Version != "5.5.1" || p.Header.Charset != "UTF-8" || p.Header.Language != "Catalan" {
		t.Fatalf("capçalera inesperada: %+v", p.Header)
	}
	if len(p.Individuals) != 1 {
		t.Fatalf("esperava 1 persona (la duplicada s'ignora), he rebut %d", len(p.Individuals))
	}
	ind := p.Individual("@I1@")
	if ind.FirstName != "Joan" || ind.LastName != "Puig" || ind.Names[0].Suffix != "Jr." {
		t.Fatalf("nom inesperat: %+v", ind.Names)
	}
	if ind.Sex != SexUnknown {
		t.Fatalf("un sexe desconegut ha de ser U, he rebut %q", ind.Sex)
	}
	if occu := ind.Event("OCCU"); occu == nil || occu.Description != "Pagès" {
		t.Fatalf("falta l'ocupació: %+v", ind.Events)
	}
	if len(ind.Notes) != 1 || ind.Notes[0] != "Primera línia\nSegona línia" {
		t.Fatalf("nota inesperada: %q", ind.Notes)
	}
	if p.Skipped["SUBM"] != 1 || p.Skipped["INDI"] != 1 {
		t.Fatalf("registres descartats inesperats: %v", p.Skipped)
	}

	fam := p.Family("@F1@")
	if fam.HusbandXref != "@I1@" || fam.WifeXref != "" {
		t.Fatalf("cònjuges inesperats: %+v", fam)
	}
	if len(fam.ChildXrefs) != 1 || fam.ChildXrefs[0] != "@I2@" {
		t.Fatalf("fills inesperats: %v", fam.ChildXrefs)
	}
	marr := fam.Event("MARR")
	if marr == nil || marr.Date.Qualifier != QualifierAbout || marr.Place != "Girona" {
		t.Fatalf("matrimoni inesperat: %+v", marr)
	}

	src := p.Source("@S1@")
	if src.Title != "Registre parroquial" || src.RepositoryXref != "@R1@" || src.CallNumber != "42" {
		t.Fatalf("font inesperada: %+v", src)
	}
	if repo := p.Repository("@R1@"); repo == nil || repo.Name != "Arxiu Diocesà" {
		t.Fatalf("repositori inesperat: %+v", repo)
	}
	if m := p.MediaObject("@O1@"); m == nil || m.File != "foto.jpg" || m.Format != "jpg" {
		t.Fatalf("media inesperat: %+v", m)
	}
	if p.TotalRecords() != 2 {
		t.Fatalf("esperava 2 registres de progrés, he rebut %d", p.TotalRecords())
	}

	joined := strings.Join(p.Warnings, "\n")
	for _, want := range []string{"duplicada", "sense xref", "repetit"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("falta l'avís %q a %v", want, p.Warnings)
		}
	}
}

func TestMapRecordsKeepsUnknownTags(t *testing.T) {
	p := Parse("0 @I1@ INDI\n1 _UID ABC\n1 _CUSTOM dalt\n2 _SUB u\n3 _DEEP dos\n1 BIRT\n2 _WEATHER sol")
	ind := p.Individual("@I1@")
	if got := ind.AdditionalData["_UID"]; len(got) != 1 || got[0].Value != "ABC" {
		t.Fatalf("_UID perdut: %+v", ind.AdditionalData)
	}
	custom := ind.AdditionalData["_CUSTOM"]
	if len(custom) != 1 || custom[0].Children["_SUB"][0].Children["_DEEP"][0].Value != "dos" {
		t.Fatalf("subarbre _CUSTOM perdut: %+v", custom)
	}
	birth := ind.Event("BIRT")
	if birth == nil || birth.AdditionalData["_WEATHER"][0].Value != "sol" {
		t.Fatalf("tag desconegut de l'esdeveniment perdut: %+v", birth)
	}
	if birth.Date.Qualifier != QualifierEmpty {
		t.Fatalf("un esdeveniment sense data ha de tenir data EMPTY")
	}
}

func TestParseGEDCOMLarge(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "large.ged")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("no puc crear fitxer GEDCOM: %v", err)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	_, _ = fmt.Fprintln(writer, "0 HEAD")
	_, _ = fmt.Fprintln(writer, "1 SOUR ArbreGedcom")
	_, _ = fmt.Fprintln(writer, "1 GEDC")

	const totalPersons = 5000
	const totalFamilies = 2500

	for i := 1; i <= totalPersons; i++ {
		_, _ = fmt.Fprintf(writer, "0 @I%d@ INDI\n1 NAME Persona%d /Cognom%d/\n1 SEX M\n1 BIRT\n2 DATE 1 JAN 1900\n", i, i, i)
	}
	for i := 1; i <= totalFamilies; i++ {
		husb := i*2 - 1
		wife := i * 2
		child := i*2 + 1
		if child > totalPersons {
			child = 1
		}
		_, _ = fmt.Fprintf(writer, "0 @F%d@ FAM\n1 HUSB @I%d@\n1 WIFE @I%d@\n1 CHIL @I%d@\n", i, husb, wife, child)
	}
	_, _ = fmt.Fprintln(writer, "0 TRLR")
	if err := writer.Flush(); err != nil {
		t.Fatalf("no puc escriure fitxer GEDCOM: %v", err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("no puc obrir el fitxer: %v", err)
	}
	defer in.Close()
	result, err := ParseReader(in)
	if err != nil {
		t.Fatalf("ParseReader ha fallat: %v", err)
	}
	if got := len(result.Individuals); got != totalPersons {
		t.Fatalf("esperava %d persones, he rebut %d", totalPersons, got)
	}
	if got := len(result.Families); got != totalFamilies {
		t.Fatalf("esperava %d famílies, he rebut %d", totalFamilies, got)
	}
	if birth := result.Individual("@I42@").Event("BIRT"); birth == nil || birth.Date.String() != "1 JAN 1900" {
		t.Fatalf("naixement inesperat: %+v", birth)
	}
}

func TestSplitAndFormatName(t *testing.T) {
	cases := []struct {
		raw, given, surname, suffix, formatted string
	}{
		{"John /Smith/", "John", "Smith", "", "John /Smith/"},
		{"  Joan   Maria /de  la Torre/ III ", "Joan Maria", "de la Torre", "III", "Joan Maria /de la Torre/ III"},
		{"/Puig/", "", "Puig", "", "/Puig/"},
		{"Només Nom", "Només Nom", "", "", "Només Nom"},
		{"", "", "", "", ""},
	}
	for _, tc := range cases {
		given, surname, suffix := SplitName(tc.raw)
		if given != tc.given || surname != tc.surname || suffix != tc.suffix {
			t.Fatalf("%q: %q/%q/%q", tc.raw, given, surname, suffix)
		}
		if got := FormatName(given, surname, suffix); got != tc.formatted {
			t.Fatalf("%q: format %q, esperava %q", tc.raw, got, tc.formatted)
		}
	}
}
