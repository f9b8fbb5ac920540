package gedcom

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

const roundTripGedcom = `0 HEAD
1 SOUR Test
1 CHAR UTF-8
0 @I1@ INDI
1 NAME John /Smith/
2 _AKA Johnny
1 SEX M
1 BIRT
2 DATE 12 MAR 1850
2 PLAC Barcelona
2 _WEATHER sunny
1 _UID ABC123
1 _CUSTOM top
2 _SUB one
3 _DEEP two
1 FAMS @F1@
1 NOTE line one
2 CONT line two
0 @I2@ INDI
1 NAME Mary /Jones/
1 SEX F
1 FAMS @F1@
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
1 MARR
2 DATE BET 1870 AND 1875
1 _MARRTYPE civil
0 @S1@ SOUR
1 TITL Parish book
1 REPO @R1@
2 CALN 42
0 @R1@ REPO
1 NAME Archive
1 _OPENING weekdays
0 TRLR
`

func TestEncodeRoundTripKeepsAdditionalData(t *testing.T) {
	first := Parse(roundTripGedcom)
	var buf bytes.Buffer
	if err := Encode(&buf, first); err != nil {
		t.Fatalf("Encode ha fallat: %v", err)
	}
	second := Parse(buf.String())
	if second.UnparsedLines != 0 {
		t.Fatalf("la sortida té línies invàlides: %v", second.Warnings)
	}

	for _, xref := range []string{"@I1@", "@I2@"} {
		a, b := first.Individual(xref), second.Individual(xref)
		if !reflect.DeepEqual(a.AdditionalData, b.AdditionalData) {
			t.Fatalf("%s: AdditionalData ha canviat\n%+v\n%+v", xref, a.AdditionalData, b.AdditionalData)
		}
		if !reflect.DeepEqual(a.Names, b.Names) || !reflect.DeepEqual(a.Events, b.Events) {
			t.Fatalf("%s: noms o esdeveniments han canviat", xref)
		}
		if !reflect.DeepEqual(a.Notes, b.Notes) || !reflect.DeepEqual(a.FamilySpouseXrefs, b.FamilySpouseXrefs) {
			t.Fatalf("%s: notes o punters han canviat", xref)
		}
	}
	if !reflect.DeepEqual(first.Family("@F1@"), second.Family("@F1@")) {
		t.Fatalf("la família ha canviat\n%+v\n%+v", first.Family("@F1@"), second.Family("@F1@"))
	}
	if !reflect.DeepEqual(first.Source("@S1@"), second.Source("@S1@")) {
		t.Fatalf("la font ha canviat")
	}
	if !reflect.DeepEqual(first.Repository("@R1@"), second.Repository("@R1@")) {
		t.Fatalf("el repositori ha canviat")
	}
	if second.Header.Source != ExportSource {
		t.Fatalf("HEAD.SOUR hauria de ser %s", ExportSource)
	}
}

func TestEncodeSplitsLongLines(t *testing.T) {
	p := NewParsed()
	long := strings.Repeat("a", maxLineValue+10)
	p.AddNote(&Note{Xref: "@N1@", Text: "primera\n" + long})

	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		t.Fatalf("Encode ha fallat: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "0 @N1@ NOTE primera\n1 CONT "+strings.Repeat("a", maxLineValue)+"\n1 CONC aaaaaaaaaa\n") {
		t.Fatalf("CONT/CONC inesperats:\n%s", out)
	}
	if !strings.HasSuffix(out, "0 TRLR\n") {
		t.Fatalf("falta TRLR")
	}
	back := Parse(out)
	if back.Note("@N1@").Text != "primera\n"+long {
		t.Fatalf("el text no sobreviu l'exportació")
	}
}
