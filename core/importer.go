package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/marcmoiagese/ArbreGedcom/core/gedcom"
	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
)

// ImportError és qualsevol fallada de persistència durant ImportToDatabase.
// La transacció ja s'ha desfet quan el cridant la rep.
type ImportError struct {
	Op   string
	Kind string
	Xref string
	Err  error
}

func (e *ImportError) Error() string {
	if e.Xref != "" {
		return fmt.Sprintf("importació GEDCOM: %s %s %s: %v", e.Op, e.Kind, e.Xref, e.Err)
	}
	return fmt.Sprintf("importació GEDCOM: %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Constraint indica si l'error ve d'una restricció d'unicitat o clau forana.
func (e *ImportError) Constraint() bool { return db.IsConstraintViolation(e.Err) }

// ImportSummary resumeix una importació; es desa com a summary_json.
type ImportSummary struct {
	Individuals    int      `json:"individuals"`
	Families       int      `json:"families"`
	FamilyChildren int      `json:"family_children"`
	Sources        int      `json:"sources"`
	Repositories   int      `json:"repositories"`
	Notes          int      `json:"notes"`
	Media          int      `json:"media"`
	Events         int      `json:"events"`
	UnresolvedRefs int      `json:"unresolved_refs"`
	UnparsedLines  int      `json:"unparsed_lines"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (s *ImportSummary) warn(msg string) {
	s.Warnings = appendWarning(s.Warnings, msg)
}

// ImportObserver rep el progrés després de cada persona i família.
// S'executa dins la transacció: no ha d'escriure a la BD.
type ImportObserver func(done, total int)

// entityRefs són els punters GEDCOM sense columna pròpia, desats a refs_json.
type entityRefs struct {
	Names        []storedName `json:"names,omitempty"`
	FamilyChild  []string     `json:"famc,omitempty"`
	FamilySpouse []string     `json:"fams,omitempty"`
	Sources      []string     `json:"sources,omitempty"`
	Notes        []string     `json:"notes,omitempty"`
	Media        []string     `json:"media,omitempty"`
	InlineNotes  []string     `json:"inline_notes,omitempty"`
}

type storedName struct {
	Full    string                `json:"full,omitempty"`
	Given   string                `json:"given,omitempty"`
	Surname string                `json:"surname,omitempty"`
	Suffix  string                `json:"suffix,omitempty"`
	Extra   gedcom.AdditionalData `json:"extra,omitempty"`
}

func (r entityRefs) empty() bool {
	return len(r.Names) == 0 && len(r.FamilyChild) == 0 && len(r.FamilySpouse) == 0 &&
		len(r.Sources) == 0 && len(r.Notes) == 0 && len(r.Media) == 0 && len(r.InlineNotes) == 0
}

func marshalRefs(r entityRefs) (sql.NullString, error) {
	if r.empty() {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func marshalAdditional(a gedcom.AdditionalData) (sql.NullString, error) {
	s, err := a.JSON()
	if err != nil {
		return sql.NullString{}, err
	}
	return sqlNullString(s), nil
}

// importRun porta l'estat d'una crida: el mapa xref→id és local i no es comparteix.
type importRun struct {
	ctx     context.Context
	tx      db.GedcomTx
	treeID  int
	parsed  *gedcom.Parsed
	summary *ImportSummary
	observe ImportObserver
	done    int

	individualIDs map[string]int
	familyIDs     map[string]int
	repositoryIDs map[string]int
}

// ImportToDatabase persisteix el Parsed a l'arbre en una sola transacció i en dues passades:
// primer les persones, després la resta resolent xrefs. Les referències no resoltes queden NULL.
// Reimportar el mateix fitxer actualitza les files existents per (tree_id, gedcom_xref).
func (a *App) ImportToDatabase(ctx context.Context, parsed *gedcom.Parsed, treeID int, observers ...ImportObserver) (*ImportSummary, error) {
	if parsed == nil {
		return nil, errors.New("no hi ha cap GEDCOM per importar")
	}
	if treeID <= 0 {
		return nil, errors.Errorf("arbre no vàlid: %d", treeID)
	}
	ctx, span := startSpan(ctx, "gedcom.persist", treeID, 0)

	var summary *ImportSummary
	err := a.DB.WithTx(ctx, func(tx db.GedcomTx) error {
		run := &importRun{
			ctx:           ctx,
			tx:            tx,
			treeID:        treeID,
			parsed:        parsed,
			summary:       &ImportSummary{UnparsedLines: parsed.UnparsedLines},
			individualIDs: map[string]int{},
			familyIDs:     map[string]int{},
			repositoryIDs: map[string]int{},
		}
		if len(observers) > 0 {
			run.observe = observers[0]
		}
		for _, w := range parsed.Warnings {
			run.summary.warn(w)
		}
		if err := run.individuals(); err != nil {
			return err
		}
		if err := run.secondPass(); err != nil {
			return err
		}
		summary = run.summary
		return nil
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	m := getMetrics()
	m.recordsImported.WithLabelValues("individual").Add(float64(summary.Individuals))
	m.recordsImported.WithLabelValues("family").Add(float64(summary.Families))
	m.recordsImported.WithLabelValues("source").Add(float64(summary.Sources))
	m.recordsImported.WithLabelValues("repository").Add(float64(summary.Repositories))
	m.recordsImported.WithLabelValues("note").Add(float64(summary.Notes))
	m.recordsImported.WithLabelValues("media").Add(float64(summary.Media))
	m.recordsImported.WithLabelValues("event").Add(float64(summary.Events))
	return summary, nil
}

func (r *importRun) fail(op, kind, xref string, err error) error {
	return &ImportError{Op: op, Kind: kind, Xref: xref, Err: err}
}

func (r *importRun) tick() {
	r.done++
	if r.observe != nil {
		r.observe(r.done, r.parsed.TotalRecords())
	}
}

func (r *importRun) resolve(ids map[string]int, xref, where string) sql.NullInt64 {
	if xref == "" {
		return sql.NullInt64{}
	}
	if id, ok := ids[xref]; ok {
		return sqlNullInt(id)
	}
	r.summary.UnresolvedRefs++
	r.summary.warn(fmt.Sprintf("Referència %s no resolta (%s)", xref, where))
	return sql.NullInt64{}
}

// Passada 1: persones, per tenir el mapa xref→id complet.
func (r *importRun) individuals() error {
	for _, ind := range r.parsed.Individuals {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		row, err := individualRow(r.treeID, ind)
		if err != nil {
			return r.fail("serialitzar", "INDI", ind.Xref, err)
		}
		id, err := r.tx.UpsertIndividual(r.ctx, row)
		if err != nil {
			return r.fail("upsert", "INDI", ind.Xref, err)
		}
		r.individualIDs[ind.Xref] = id
		r.summary.Individuals++
		r.tick()
	}
	return nil
}

// Passada 2: repositoris, fonts, notes, media, famílies amb fills i esdeveniments.
func (r *importRun) secondPass() error {
	for _, repo := range r.parsed.Repositories {
		extra, err := marshalAdditional(repo.AdditionalData)
		if err != nil {
			return r.fail("serialitzar", "REPO", repo.Xref, err)
		}
		id, err := r.tx.UpsertRepository(r.ctx, &db.Repository{
			TreeID:         r.treeID,
			GedcomXref:     sqlNullString(repo.Xref),
			Name:           sqlNullString(repo.Name),
			Address:        sqlNullString(repo.Address),
			Phone:          sqlNullString(repo.Phone),
			Email:          sqlNullString(repo.Email),
			Website:        sqlNullString(repo.Website),
			AdditionalData: extra,
		})
		if err != nil {
			return r.fail("upsert", "REPO", repo.Xref, err)
		}
		r.repositoryIDs[repo.Xref] = id
		r.summary.Repositories++
	}

	for _, src := range r.parsed.Sources {
		extra, err := marshalAdditional(src.AdditionalData)
		if err != nil {
			return r.fail("serialitzar", "SOUR", src.Xref, err)
		}
		refs, err := marshalRefs(entityRefs{Notes: src.NoteXrefs})
		if err != nil {
			return r.fail("serialitzar", "SOUR", src.Xref, err)
		}
		if _, err := r.tx.UpsertSource(r.ctx, &db.Source{
			TreeID:         r.treeID,
			GedcomXref:     sqlNullString(src.Xref),
			Title:          sqlNullString(src.Title),
			Author:         sqlNullString(src.Author),
			Publication:    sqlNullString(src.Publication),
			Abbreviation:   sqlNullString(src.Abbreviation),
			Text:           sqlNullString(src.Text),
			RepositoryID:   r.resolve(r.repositoryIDs, src.RepositoryXref, "font "+src.Xref),
			CallNumber:     sqlNullString(src.CallNumber),
			RefsJSON:       refs,
			AdditionalData: extra,
		}); err != nil {
			return r.fail("upsert", "SOUR", src.Xref, err)
		}
		r.summary.Sources++
	}

	for _, n := range r.parsed.Notes {
		extra, err := marshalAdditional(n.AdditionalData)
		if err != nil {
			return r.fail("serialitzar", "NOTE", n.Xref, err)
		}
		if _, err := r.tx.UpsertNote(r.ctx, &db.Note{
			TreeID:         r.treeID,
			GedcomXref:     sqlNullString(n.Xref),
			Text:           sqlNullString(n.Text),
			AdditionalData: extra,
		}); err != nil {
			return r.fail("upsert", "NOTE", n.Xref, err)
		}
		r.summary.Notes++
	}

	for _, m := range r.parsed.Media {
		extra, err := marshalAdditional(m.AdditionalData)
		if err != nil {
			return r.fail("serialitzar", "OBJE", m.Xref, err)
		}
		if _, err := r.tx.UpsertMedia(r.ctx, &db.Media{
			TreeID:         r.treeID,
			GedcomXref:     sqlNullString(m.Xref),
			FilePath:       sqlNullString(m.File),
			Format:         sqlNullString(m.Format),
			Title:          sqlNullString(m.Title),
			AdditionalData: extra,
		}); err != nil {
			return r.fail("upsert", "OBJE", m.Xref, err)
		}
		r.summary.Media++
	}

	for _, fam := range r.parsed.Families {
		if err := r.family(fam); err != nil {
			return err
		}
	}

	for _, ind := range r.parsed.Individuals {
		owner := db.EventOwner{TreeID: r.treeID, IndividualID: r.individualIDs[ind.Xref]}
		if err := r.events("INDI", ind.Xref, owner, ind.Events); err != nil {
			return err
		}
	}
	for _, fam := range r.parsed.Families {
		owner := db.EventOwner{TreeID: r.treeID, FamilyID: r.familyIDs[fam.Xref]}
		if err := r.events("FAM", fam.Xref, owner, fam.Events); err != nil {
			return err
		}
	}
	return nil
}

func (r *importRun) family(fam *gedcom.Family) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	row, err := familyRow(r.treeID, fam)
	if err != nil {
		return r.fail("serialitzar", "FAM", fam.Xref, err)
	}
	row.HusbandID = r.resolve(r.individualIDs, fam.HusbandXref, "marit de "+fam.Xref)
	row.WifeID = r.resolve(r.individualIDs, fam.WifeXref, "muller de "+fam.Xref)
	id, err := r.tx.UpsertFamily(r.ctx, row)
	if err != nil {
		return r.fail("upsert", "FAM", fam.Xref, err)
	}
	r.familyIDs[fam.Xref] = id

	children := make([]db.FamilyChild, 0, len(fam.ChildXrefs))
	for order, xref := range fam.ChildXrefs {
		childID := r.resolve(r.individualIDs, xref, "fill de "+fam.Xref)
		if !childID.Valid {
			continue
		}
		children = append(children, db.FamilyChild{FamilyID: id, IndividualID: int(childID.Int64), ChildOrder: order})
	}
	if err := r.tx.ReplaceFamilyChildren(r.ctx, id, children); err != nil {
		return r.fail("fills", "FAM", fam.Xref, err)
	}
	r.summary.Families++
	r.summary.FamilyChildren += len(children)
	r.tick()
	return nil
}

func (r *importRun) events(kind, xref string, owner db.EventOwner, events []gedcom.Event) error {
	rows := make([]db.Event, 0, len(events))
	for _, ev := range events {
		row, err := eventRow(ev)
		if err != nil {
			return r.fail("serialitzar", kind, xref, err)
		}
		rows = append(rows, row)
	}
	if err := r.tx.ReplaceEvents(r.ctx, owner, rows); err != nil {
		return r.fail("esdeveniments", kind, xref, err)
	}
	r.summary.Events += len(rows)
	return nil
}

func individualRow(treeID int, ind *gedcom.Individual) (*db.Individual, error) {
	refs := entityRefs{
		FamilyChild:  ind.FamilyChildXrefs,
		FamilySpouse: ind.FamilySpouseXrefs,
		Sources:      ind.SourceXrefs,
		Notes:        ind.NoteXrefs,
		Media:        ind.MediaXrefs,
		InlineNotes:  ind.Notes,
	}
	suffix := ""
	for i, n := range ind.Names {
		if i == 0 {
			suffix = n.Suffix
		}
		refs.Names = append(refs.Names, storedName{
			Full: n.Full, Given: n.Given, Surname: n.Surname, Suffix: n.Suffix, Extra: n.AdditionalData,
		})
	}
	refsJSON, err := marshalRefs(refs)
	if err != nil {
		return nil, err
	}
	extra, err := marshalAdditional(ind.AdditionalData)
	if err != nil {
		return nil, err
	}
	row := &db.Individual{
		TreeID:         treeID,
		GedcomXref:     sqlNullString(ind.Xref),
		FirstName:      sqlNullString(ind.FirstName),
		LastName:       sqlNullString(ind.LastName),
		FullName:       sqlNullString(gedcom.FormatName(ind.FirstName, ind.LastName, suffix)),
		Sex:            gedcom.NormalizeSex(ind.Sex),
		RefsJSON:       refsJSON,
		AdditionalData: extra,
	}
	if birth := ind.Event("BIRT"); birth != nil {
		row.BirthDate = sqlNullString(birth.Date.String())
		row.BirthYear = sqlNullInt(birth.Date.SortYear())
		row.BirthPlace = sqlNullString(birth.Place)
	}
	if death := ind.Event("DEAT"); death != nil {
		row.DeathDate = sqlNullString(death.Date.String())
		row.DeathYear = sqlNullInt(death.Date.SortYear())
		row.DeathPlace = sqlNullString(death.Place)
	}
	return row, nil
}

func familyRow(treeID int, fam *gedcom.Family) (*db.Family, error) {
	refsJSON, err := marshalRefs(entityRefs{
		Sources:     fam.SourceXrefs,
		Notes:       fam.NoteXrefs,
		Media:       fam.MediaXrefs,
		InlineNotes: fam.Notes,
	})
	if err != nil {
		return nil, err
	}
	extra, err := marshalAdditional(fam.AdditionalData)
	if err != nil {
		return nil, err
	}
	row := &db.Family{
		TreeID:         treeID,
		GedcomXref:     sqlNullString(fam.Xref),
		RefsJSON:       refsJSON,
		AdditionalData: extra,
	}
	if marr := fam.Event("MARR"); marr != nil {
		row.MarriageDate = sqlNullString(marr.Date.String())
		row.MarriageYear = sqlNullInt(marr.Date.SortYear())
		row.MarriagePlace = sqlNullString(marr.Place)
	}
	return row, nil
}

func eventRow(ev gedcom.Event) (db.Event, error) {
	refsJSON, err := marshalRefs(entityRefs{Sources: ev.SourceXrefs, Notes: ev.NoteXrefs})
	if err != nil {
		return db.Event{}, err
	}
	extra, err := marshalAdditional(ev.AdditionalData)
	if err != nil {
		return db.Event{}, err
	}
	return db.Event{
		EventType:      ev.Tag,
		EventSubtype:   sqlNullString(ev.Type),
		DateRaw:        sqlNullString(ev.Date.Raw),
		DateText:       sqlNullString(ev.Date.String()),
		DateQualifier:  sqlNullString(string(ev.Date.Qualifier)),
		DateYear:       sqlNullInt(ev.Date.SortYear()),
		DateEndYear:    sqlNullInt(ev.Date.EndYear()),
		Place:          sqlNullString(ev.Place),
		Description:    sqlNullString(ev.Description),
		RefsJSON:       refsJSON,
		AdditionalData: extra,
	}, nil
}
