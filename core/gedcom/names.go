package gedcom

import "strings"

// SplitName separa un valor NAME "nom /cognom/ sufix". Sense barres tot és nom.
func SplitName(value string) (given, surname, suffix string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", ""
	}
	if !strings.Contains(value, "/") {
		return collapseSpaces(value), "", ""
	}
	parts := strings.SplitN(value, "/", 3)
	given = collapseSpaces(parts[0])
	surname = collapseSpaces(parts[1])
	if len(parts) == 3 {
		suffix = collapseSpaces(parts[2])
	}
	return given, surname, suffix
}

// FormatName recompon el valor NAME en la convenció GEDCOM.
func FormatName(given, surname, suffix string) string {
	if given == "" && surname == "" && suffix == "" {
		return ""
	}
	var parts []string
	if given != "" {
		parts = append(parts, given)
	}
	if surname != "" || given == "" {
		parts = append(parts, "/"+surname+"/")
	}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return strings.Join(parts, " ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSex deixa M o F i converteix qualsevol altre valor en U.
func NormalizeSex(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case SexMale:
		return SexMale
	case SexFemale:
		return SexFemale
	}
	return SexUnknown
}
