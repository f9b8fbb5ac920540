package gedcom

import "testing"

func TestNormalizeDateForms(t *testing.T) {
	cases := []struct {
		raw  string
		q    Qualifier
		text string
		year int
		end  int
	}{
		{"BEF 969", QualifierBefore, "BEF 969", 969, 0},
		{"Bef. 969", QualifierBefore, "BEF 969", 969, 0},
		{"AFT 1800", QualifierAfter, "AFT 1800", 1800, 0},
		{"BET 1100 AND 1200", QualifierBetween, "BET 1100 AND 1200", 1100, 1200},
		{"BET 1 JAN 1900 AND 1 JAN 1800", QualifierBetween, "BET 1 JAN 1800 AND 1 JAN 1900", 1800, 1900},
		{"ABT 1066 or 1094", QualifierAbout, "ABT 1066", 1066, 0},
		{"1066 or 94", QualifierAbout, "ABT 1066", 1066, 0},
		{"1066 or 1094", QualifierBetween, "BET 1066 AND 1094", 1066, 1094},
		{"ABT 1700", QualifierAbout, "ABT 1700", 1700, 0},
		{"EST 1700", QualifierEstimated, "EST 1700", 1700, 0},
		{"CIR 1700", QualifierCirca, "ABT 1700", 1700, 0},
		{"1850-1900", QualifierRange, "1850-1900", 1850, 1900},
		{"FROM 1850 TO 1860", QualifierRange, "FROM 1850 TO 1860", 1850, 1860},
		{"FROM 1850", QualifierAfter, "AFT 1850", 1850, 0},
		{"TO 1860", QualifierBefore, "BEF 1860", 1860, 0},
		{"12 MAR 1850", QualifierExact, "12 MAR 1850", 1850, 0},
		{"12 March 1850", QualifierExact, "12 MAR 1850", 1850, 0},
		{"MAR 1850", QualifierExact, "MAR 1850", 1850, 0},
		{"1850", QualifierExact, "1850", 1850, 0},
		{"@#DJULIAN@ 1 JAN 1700", QualifierExact, "@#DJULIAN@ 1 JAN 1700", 1700, 0},
		{"CAL 1900", QualifierEstimated, "EST 1900", 1900, 0},
		{"INT 1900 (segons el padró)", QualifierExact, "1900", 1900, 0},
		{"INT 3 MAY 1850", QualifierExact, "3 MAY 1850", 1850, 0},
		{"1850 - 1900", QualifierRange, "1850-1900", 1850, 1900},
	}
	for _, tc := range cases {
		got := NormalizeDate(tc.raw)
		if got.Qualifier != tc.q {
			t.Fatalf("%q: qualificador %s, esperava %s", tc.raw, got.Qualifier, tc.q)
		}
		if s := got.String(); s != tc.text {
			t.Fatalf("%q: text %q, esperava %q", tc.raw, s, tc.text)
		}
		if got.SortYear() != tc.year || got.EndYear() != tc.end {
			t.Fatalf("%q: anys %d-%d, esperava %d-%d", tc.raw, got.SortYear(), got.EndYear(), tc.year, tc.end)
		}
		if got.Raw != tc.raw {
			t.Fatalf("%q: s'ha perdut el text original (%q)", tc.raw, got.Raw)
		}
	}
}

func TestNormalizeDateEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "null", "NULL", "UNK", "unknown", "?"} {
		got := NormalizeDate(raw)
		if got.Qualifier != QualifierEmpty {
			t.Fatalf("%q: esperava EMPTY, he rebut %s", raw, got.Qualifier)
		}
		if !got.IsEmpty() {
			t.Fatalf("%q: IsEmpty hauria de ser cert", raw)
		}
		if s := CleanGedcomDate(raw); s != "" {
			t.Fatalf("%q: esperava text buit, he rebut %q", raw, s)
		}
	}
}

func TestNormalizeDateRejectedYearsAreUnknown(t *testing.T) {
	for _, raw := range []string{"0", "10000", "abc", "31 FEB 1900", "12 FOO 1850", "19 00-1950", "1850-19 00", "INT (sense data)"} {
		got := NormalizeDate(raw)
		if got.Qualifier != QualifierUnknown {
			t.Fatalf("%q: esperava UNKNOWN, he rebut %s", raw, got.Qualifier)
		}
		if got.Raw != raw || got.String() != raw {
			t.Fatalf("%q: s'hauria de conservar el text original, he rebut %q", raw, got.String())
		}
		if got.Primary != nil {
			t.Fatalf("%q: UNKNOWN no ha de tenir data", raw)
		}
	}
}

func TestNormalizeDateSuspectRange(t *testing.T) {
	got := NormalizeDate("1900-1850")
	if got.Qualifier != QualifierRange || !got.Suspect {
		t.Fatalf("esperava RANGE sospitós, he rebut %s suspect=%v", got.Qualifier, got.Suspect)
	}
	if NormalizeDate("1850-1900").Suspect {
		t.Fatalf("un rang ordenat no és sospitós")
	}
}

func TestNormalizeDateSuspectBetween(t *testing.T) {
	for _, raw := range []string{"Bet 1200 and 1100", "1066 or 1"} {
		got := NormalizeDate(raw)
		if got.Qualifier != QualifierBetween || !got.Suspect {
			t.Fatalf("%q: esperava BETWEEN sospitós, he rebut %s suspect=%v", raw, got.Qualifier, got.Suspect)
		}
		if got.SortYear() < got.EndYear() {
			t.Fatalf("%q: els anys s'han de conservar tal com venen (%d-%d)", raw, got.SortYear(), got.EndYear())
		}
	}
	for _, raw := range []string{"BET 1100 AND 1200", "BET 1 JAN 1900 AND 1 JAN 1800", "1066 or 1094"} {
		if NormalizeDate(raw).Suspect {
			t.Fatalf("%q: no hauria de ser sospitós", raw)
		}
	}
}

func TestCleanGedcomDateIsStable(t *testing.T) {
	for _, raw := range []string{"Bef. 969", "12 March 1850", "1066 or 94", "FROM 1850 TO 1860", "1850-1900", "CAL 1900"} {
		once := CleanGedcomDate(raw)
		if twice := CleanGedcomDate(once); twice != once {
			t.Fatalf("%q: %q no és estable (%q)", raw, once, twice)
		}
	}
}
