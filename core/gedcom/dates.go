package gedcom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Qualifier descriu la precisió o certesa d'una data GEDCOM.
type Qualifier string

const (
	QualifierExact     Qualifier = "EXACT"
	QualifierAbout     Qualifier = "ABOUT"
	QualifierEstimated Qualifier = "ESTIMATED"
	QualifierCirca     Qualifier = "CIRCA"
	QualifierBefore    Qualifier = "BEFORE"
	QualifierAfter     Qualifier = "AFTER"
	QualifierBetween   Qualifier = "BETWEEN"
	QualifierRange     Qualifier = "RANGE"
	QualifierUnknown   Qualifier = "UNKNOWN"
	QualifierEmpty     Qualifier = "EMPTY"
)

const (
	minYear = 1
	maxYear = 9999
)

var monthAbbr = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

var monthByName = func() map[string]int {
	m := map[string]int{"SEPT": 9}
	for i, abbr := range monthAbbr {
		m[abbr] = i + 1
		m[strings.ToUpper(time.Month(i+1).String())] = i + 1
	}
	return m
}()

var emptyDateTokens = map[string]struct{}{"": {}, "null": {}, "unk": {}, "unknown": {}, "?": {}}

var yearRangeRe = regexp.MustCompile(`^(\d{4})\s*-\s*(\d{4})$`)

// DatePart és una data de calendari o un any sol. Month i Day valen 0 si manquen.
type DatePart struct {
	Year       int `json:"year"`
	Month      int `json:"month,omitempty"`
	Day        int `json:"day,omitempty"`
	YearDigits int `json:"-"`
}

// IsFull indica si la part té dia, mes i any.
func (p DatePart) IsFull() bool {
	return p.Day > 0 && p.Month > 0
}

func (p DatePart) before(q DatePart) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	if p.Month != q.Month {
		return p.Month < q.Month
	}
	return p.Day < q.Day
}

func (p DatePart) String() string {
	digits := p.YearDigits
	if digits <= 0 {
		digits = 1
	}
	year := fmt.Sprintf("%0*d", digits, p.Year)
	if p.Month == 0 {
		return year
	}
	if p.Day == 0 {
		return monthAbbr[p.Month-1] + " " + year
	}
	return fmt.Sprintf("%d %s %s", p.Day, monthAbbr[p.Month-1], year)
}

// NormalizedDate és la representació canònica d'una data GEDCOM.
type NormalizedDate struct {
	Raw       string    `json:"raw"`
	Qualifier Qualifier `json:"qualifier"`
	Primary   *DatePart `json:"primary,omitempty"`
	Secondary *DatePart `json:"secondary,omitempty"`
	Calendar  string    `json:"calendar,omitempty"`
	// Suspect marca un BETWEEN o RANGE amb l'any superior anterior a l'inferior.
	Suspect bool `json:"suspect,omitempty"`

	period bool
}

type dateRule struct {
	name  string
	match func(tokens []string) (NormalizedDate, bool)
}

// dateRules s'avaluen en ordre; guanya la primera que encaixa.
var dateRules = []dateRule{
	{name: "between", match: matchBetween},
	{name: "year-range", match: matchYearRange},
	{name: "period", match: matchPeriod},
	{name: "before-after", match: matchBeforeAfter},
	{name: "approximate", match: matchApproximate},
	{name: "interpreted", match: matchInterpreted},
	{name: "alternative", match: matchAlternative},
	{name: "calendar-date", match: matchCalendarDate},
	{name: "year", match: matchYear},
}

// NormalizeDate converteix una data GEDCOM lliure en una NormalizedDate. Mai falla:
// el que no s'entén queda com UNKNOWN amb el text original.
func NormalizeDate(raw string) NormalizedDate {
	trimmed := strings.TrimSpace(raw)
	if _, ok := emptyDateTokens[strings.ToLower(trimmed)]; ok {
		return NormalizedDate{Raw: raw, Qualifier: QualifierEmpty}
	}
	tokens := strings.Fields(trimmed)
	calendar := ""
	if len(tokens) > 0 && strings.HasPrefix(tokens[0], "@#") && strings.HasSuffix(tokens[0], "@") {
		calendar = strings.ToUpper(strings.TrimPrefix(strings.Trim(tokens[0], "@#"), "D"))
		tokens = tokens[1:]
	}
	if len(tokens) > 0 {
		for _, rule := range dateRules {
			if nd, ok := rule.match(tokens); ok {
				nd.Raw = raw
				nd.Calendar = calendar
				return nd
			}
		}
	}
	return NormalizedDate{Raw: raw, Qualifier: QualifierUnknown}
}

// CleanGedcomDate retorna el text canònic d'una data GEDCOM.
func CleanGedcomDate(raw string) string {
	return NormalizeDate(raw).String()
}

// String renderitza la data amb els tokens GEDCOM fixos.
func (d NormalizedDate) String() string {
	var body string
	switch d.Qualifier {
	case QualifierEmpty:
		return ""
	case QualifierUnknown:
		return strings.TrimSpace(d.Raw)
	case QualifierExact:
		body = d.Primary.String()
	case QualifierAbout, QualifierCirca:
		body = "ABT " + d.Primary.String()
	case QualifierEstimated:
		body = "EST " + d.Primary.String()
	case QualifierBefore:
		body = "BEF " + d.Primary.String()
	case QualifierAfter:
		body = "AFT " + d.Primary.String()
	case QualifierBetween:
		body = "BET " + d.Primary.String() + " AND " + d.Secondary.String()
	case QualifierRange:
		if d.period {
			body = "FROM " + d.Primary.String() + " TO " + d.Secondary.String()
		} else {
			body = d.Primary.String() + "-" + d.Secondary.String()
		}
	default:
		return strings.TrimSpace(d.Raw)
	}
	if d.Calendar != "" && d.Calendar != "GREGORIAN" {
		return "@#D" + d.Calendar + "@ " + body
	}
	return body
}

// IsEmpty indica si la data no aporta cap valor.
func (d NormalizedDate) IsEmpty() bool {
	return d.Qualifier == QualifierEmpty || d.Qualifier == ""
}

// SortYear retorna l'any principal o 0 si no n'hi ha.
func (d NormalizedDate) SortYear() int {
	if d.Primary == nil {
		return 0
	}
	return d.Primary.Year
}

// EndYear retorna l'any del límit superior per BETWEEN/RANGE, o 0.
func (d NormalizedDate) EndYear() int {
	if d.Secondary == nil {
		return 0
	}
	return d.Secondary.Year
}

func single(q Qualifier, p DatePart) NormalizedDate {
	return NormalizedDate{Qualifier: q, Primary: &p}
}

func pair(q Qualifier, a, b DatePart) NormalizedDate {
	return NormalizedDate{Qualifier: q, Primary: &a, Secondary: &b}
}

// between ordena dues dates completes; si no ho són, conserva l'ordre i marca els anys invertits.
func between(a, b DatePart) NormalizedDate {
	if a.IsFull() && b.IsFull() && b.before(a) {
		a, b = b, a
	}
	nd := pair(QualifierBetween, a, b)
	nd.Suspect = b.Year < a.Year
	return nd
}

func keyword(tok string) string {
	return strings.TrimSuffix(strings.ToUpper(tok), ".")
}

func indexOfKeyword(tokens []string, kw string) int {
	for i, t := range tokens {
		if keyword(t) == kw {
			return i
		}
	}
	return -1
}

func matchBetween(tokens []string) (NormalizedDate, bool) {
	if kw := keyword(tokens[0]); kw != "BET" && kw != "BETWEEN" {
		return NormalizedDate{}, false
	}
	and := indexOfKeyword(tokens, "AND")
	if and < 2 {
		return NormalizedDate{}, false
	}
	a, okA := parsePart(tokens[1:and])
	b, okB := parsePart(tokens[and+1:])
	if !okA || !okB {
		return NormalizedDate{}, false
	}
	return between(a, b), true
}

func matchYearRange(tokens []string) (NormalizedDate, bool) {
	m := yearRangeRe.FindStringSubmatch(strings.Join(tokens, " "))
	if m == nil {
		return NormalizedDate{}, false
	}
	a, okA := parseYear(m[1])
	b, okB := parseYear(m[2])
	if !okA || !okB {
		return NormalizedDate{}, false
	}
	nd := pair(QualifierRange, a, b)
	nd.Suspect = b.Year < a.Year
	return nd, true
}

func matchPeriod(tokens []string) (NormalizedDate, bool) {
	switch keyword(tokens[0]) {
	case "FROM":
		to := indexOfKeyword(tokens, "TO")
		if to < 0 {
			p, ok := parsePart(tokens[1:])
			if !ok {
				return NormalizedDate{}, false
			}
			return single(QualifierAfter, p), true
		}
		a, okA := parsePart(tokens[1:to])
		b, okB := parsePart(tokens[to+1:])
		if !okA || !okB {
			return NormalizedDate{}, false
		}
		nd := pair(QualifierRange, a, b)
		nd.period = true
		nd.Suspect = b.before(a)
		return nd, true
	case "TO":
		p, ok := parsePart(tokens[1:])
		if !ok {
			return NormalizedDate{}, false
		}
		return single(QualifierBefore, p), true
	}
	return NormalizedDate{}, false
}

func matchBeforeAfter(tokens []string) (NormalizedDate, bool) {
	var q Qualifier
	switch keyword(tokens[0]) {
	case "BEF", "BEFORE":
		q = QualifierBefore
	case "AFT", "AFTER":
		q = QualifierAfter
	default:
		return NormalizedDate{}, false
	}
	p, ok := parseOperand(tokens[1:])
	if !ok {
		return NormalizedDate{}, false
	}
	return single(q, p), true
}

func matchApproximate(tokens []string) (NormalizedDate, bool) {
	var q Qualifier
	switch keyword(tokens[0]) {
	case "ABT", "ABOUT":
		q = QualifierAbout
	case "EST", "CAL":
		q = QualifierEstimated
	case "CIR", "CIRCA":
		q = QualifierCirca
	default:
		return NormalizedDate{}, false
	}
	p, ok := parseOperand(tokens[1:])
	if !ok {
		return NormalizedDate{}, false
	}
	return single(q, p), true
}

// matchInterpreted tracta "INT <data> (<frase>)": es queda amb la data i descarta la frase.
func matchInterpreted(tokens []string) (NormalizedDate, bool) {
	if keyword(tokens[0]) != "INT" {
		return NormalizedDate{}, false
	}
	end := len(tokens)
	for i, t := range tokens[1:] {
		if strings.HasPrefix(t, "(") {
			end = i + 1
			break
		}
	}
	p, ok := parsePart(tokens[1:end])
	if !ok {
		return NormalizedDate{}, false
	}
	return single(QualifierExact, p), true
}

// matchAlternative tracta "A or B": si B abreuja el segle d'A és ABOUT(A), si no BETWEEN(A,B).
func matchAlternative(tokens []string) (NormalizedDate, bool) {
	or := indexOfOr(tokens)
	if or < 1 {
		return NormalizedDate{}, false
	}
	a, ok := parsePart(tokens[:or])
	if !ok {
		return NormalizedDate{}, false
	}
	rest := tokens[or+1:]
	if len(rest) == 1 && len(rest[0]) == 2 && isDigits(rest[0]) && a.Month == 0 && a.YearDigits >= 3 {
		return single(QualifierAbout, a), true
	}
	b, ok := parsePart(rest)
	if !ok {
		return NormalizedDate{}, false
	}
	return between(a, b), true
}

func matchCalendarDate(tokens []string) (NormalizedDate, bool) {
	if len(tokens) != 2 && len(tokens) != 3 {
		return NormalizedDate{}, false
	}
	p, ok := parsePart(tokens)
	if !ok {
		return NormalizedDate{}, false
	}
	return single(QualifierExact, p), true
}

func matchYear(tokens []string) (NormalizedDate, bool) {
	if len(tokens) != 1 {
		return NormalizedDate{}, false
	}
	p, ok := parseYear(tokens[0])
	if !ok {
		return NormalizedDate{}, false
	}
	return single(QualifierExact, p), true
}

// parseOperand accepta també la forma "A or B" i es queda amb A.
func parseOperand(tokens []string) (DatePart, bool) {
	if or := indexOfOr(tokens); or > 0 {
		tokens = tokens[:or]
	}
	return parsePart(tokens)
}

func indexOfOr(tokens []string) int {
	for i, t := range tokens {
		if t == "or" {
			return i
		}
	}
	return -1
}

func parsePart(tokens []string) (DatePart, bool) {
	switch len(tokens) {
	case 1:
		return parseYear(tokens[0])
	case 2:
		month, ok := monthByName[strings.ToUpper(strings.TrimSuffix(tokens[0], "."))]
		if !ok {
			return DatePart{}, false
		}
		p, ok := parseYear(tokens[1])
		if !ok {
			return DatePart{}, false
		}
		p.Month = month
		return p, true
	case 3:
		if len(tokens[0]) > 2 || !isDigits(tokens[0]) {
			return DatePart{}, false
		}
		day, _ := strconv.Atoi(tokens[0])
		p, ok := parsePart(tokens[1:])
		if !ok || day < 1 || day > daysIn(p.Month, p.Year) {
			return DatePart{}, false
		}
		p.Day = day
		return p, true
	}
	return DatePart{}, false
}

func parseYear(tok string) (DatePart, bool) {
	if len(tok) == 0 || len(tok) > 4 || !isDigits(tok) {
		return DatePart{}, false
	}
	year, err := strconv.Atoi(tok)
	if err != nil || year < minYear || year > maxYear {
		return DatePart{}, false
	}
	return DatePart{Year: year, YearDigits: len(tok)}, true
}

func daysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
