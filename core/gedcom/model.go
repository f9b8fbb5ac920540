package gedcom

// Valors de sexe normalitzats.
const (
	SexMale    = "M"
	SexFemale  = "F"
	SexUnknown = "U"
)

// Header recull les dades útils de la capçalera HEAD.
type Header struct {
	Source   string
	Version  string
	Charset  string
	Language string
}

// PersonalName és un registre NAME d'una persona.
type PersonalName struct {
	Full           string
	Given          string
	Surname        string
	Suffix         string
	AdditionalData AdditionalData
}

// Event és un esdeveniment o atribut (BIRT, DEAT, MARR, OCCU...).
type Event struct {
	Tag            string
	Type           string
	Date           NormalizedDate
	Place          string
	Description    string
	SourceXrefs    []string
	NoteXrefs      []string
	AdditionalData AdditionalData
}

// Individual és un registre INDI.
type Individual struct {
	Xref              string
	FirstName         string
	LastName          string
	Names             []PersonalName
	Sex               string
	Events            []Event
	FamilyChildXrefs  []string
	FamilySpouseXrefs []string
	SourceXrefs       []string
	NoteXrefs         []string
	MediaXrefs        []string
	Notes             []string
	AdditionalData    AdditionalData
}

// Event retorna el primer esdeveniment amb el tag, o nil.
func (i *Individual) Event(tag string) *Event {
	return firstEvent(i.Events, tag)
}

// Family és un registre FAM. L'ordre de ChildXrefs és el childOrder.
type Family struct {
	Xref           string
	HusbandXref    string
	WifeXref       string
	ChildXrefs     []string
	Events         []Event
	SourceXrefs    []string
	NoteXrefs      []string
	MediaXrefs     []string
	Notes          []string
	AdditionalData AdditionalData
}

// Event retorna el primer esdeveniment amb el tag, o nil.
func (f *Family) Event(tag string) *Event {
	return firstEvent(f.Events, tag)
}

type Source struct {
	Xref           string
	Title          string
	Author         string
	Publication    string
	Abbreviation   string
	Text           string
	RepositoryXref string
	CallNumber     string
	NoteXrefs      []string
	AdditionalData AdditionalData
}

type Note struct {
	Xref           string
	Text           string
	AdditionalData AdditionalData
}

type Repository struct {
	Xref           string
	Name           string
	Address        string
	Phone          string
	Email          string
	Website        string
	AdditionalData AdditionalData
}

type Media struct {
	Xref           string
	File           string
	Format         string
	Title          string
	AdditionalData AdditionalData
}

// Parsed és el resultat del mapatge: entitats per tipus, en ordre de fitxer,
// amb un índex per xref.
type Parsed struct {
	Header       Header
	Individuals  []*Individual
	Families     []*Family
	Sources      []*Source
	Notes        []*Note
	Repositories []*Repository
	Media        []*Media

	UnparsedLines int
	Warnings      []string
	Skipped       map[string]int

	individuals  map[string]*Individual
	families     map[string]*Family
	sources      map[string]*Source
	notes        map[string]*Note
	repositories map[string]*Repository
	media        map[string]*Media
}

// NewParsed retorna un Parsed buit i preparat.
func NewParsed() *Parsed {
	return &Parsed{
		Skipped:      map[string]int{},
		individuals:  map[string]*Individual{},
		families:     map[string]*Family{},
		sources:      map[string]*Source{},
		notes:        map[string]*Note{},
		repositories: map[string]*Repository{},
		media:        map[string]*Media{},
	}
}

func (p *Parsed) Individual(xref string) *Individual { return p.individuals[xref] }
func (p *Parsed) Family(xref string) *Family         { return p.families[xref] }
func (p *Parsed) Source(xref string) *Source         { return p.sources[xref] }
func (p *Parsed) Note(xref string) *Note             { return p.notes[xref] }
func (p *Parsed) Repository(xref string) *Repository { return p.repositories[xref] }
func (p *Parsed) MediaObject(xref string) *Media     { return p.media[xref] }

// TotalRecords és el denominador de progrés: persones més famílies.
func (p *Parsed) TotalRecords() int {
	return len(p.Individuals) + len(p.Families)
}

// IsEmpty indica que no hi ha ni persones ni famílies.
func (p *Parsed) IsEmpty() bool {
	return p.TotalRecords() == 0
}

// AddIndividual afegeix la persona si la xref és nova.
func (p *Parsed) AddIndividual(ind *Individual) bool {
	if _, dup := p.individuals[ind.Xref]; dup {
		return false
	}
	p.individuals[ind.Xref] = ind
	p.Individuals = append(p.Individuals, ind)
	return true
}

func (p *Parsed) AddFamily(fam *Family) bool {
	if _, dup := p.families[fam.Xref]; dup {
		return false
	}
	p.families[fam.Xref] = fam
	p.Families = append(p.Families, fam)
	return true
}

func (p *Parsed) AddSource(src *Source) bool {
	if _, dup := p.sources[src.Xref]; dup {
		return false
	}
	p.sources[src.Xref] = src
	p.Sources = append(p.Sources, src)
	return true
}

func (p *Parsed) AddNote(n *Note) bool {
	if _, dup := p.notes[n.Xref]; dup {
		return false
	}
	p.notes[n.Xref] = n
	p.Notes = append(p.Notes, n)
	return true
}

func (p *Parsed) AddRepository(r *Repository) bool {
	if _, dup := p.repositories[r.Xref]; dup {
		return false
	}
	p.repositories[r.Xref] = r
	p.Repositories = append(p.Repositories, r)
	return true
}

func (p *Parsed) AddMedia(m *Media) bool {
	if _, dup := p.media[m.Xref]; dup {
		return false
	}
	p.media[m.Xref] = m
	p.Media = append(p.Media, m)
	return true
}

func (p *Parsed) warn(msg string) {
	p.Warnings = appendWarning(p.Warnings, msg)
}

func firstEvent(events []Event, tag string) *Event {
	for i := range events {
		if events[i].Tag == tag {
			return &events[i]
		}
	}
	return nil
}
