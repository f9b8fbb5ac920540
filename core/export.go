package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"

	"github.com/marcmoiagese/ArbreGedcom/core/gedcom"
	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
)

// ExportTree reconstrueix el Parsed de l'arbre a partir de les files i l'escriu en GEDCOM.
func (a *App) ExportTree(ctx context.Context, treeID int, w io.Writer) (err error) {
	ctx, span := startSpan(ctx, "gedcom.export", treeID, 0)
	defer func() { endSpan(span, err) }()

	tree, err := a.DB.GetTree(ctx, treeID)
	if err != nil {
		return err
	}
	if tree == nil {
		return ErrTreeNotFound
	}
	parsed, err := a.loadTree(ctx, treeID)
	if err != nil {
		return err
	}
	return gedcom.Encode(w, parsed)
}

type treeRows struct {
	individuals  []db.Individual
	families     []db.Family
	children     []db.FamilyChild
	sources      []db.Source
	repositories []db.Repository
	notes        []db.Note
	media        []db.Media
	events       []db.Event
}

func (a *App) readTree(ctx context.Context, treeID int) (*treeRows, error) {
	rows := &treeRows{}
	var err error
	if rows.individuals, err = a.DB.ListIndividuals(ctx, treeID); err != nil {
		return nil, err
	}
	if rows.families, err = a.DB.ListFamilies(ctx, treeID); err != nil {
		return nil, err
	}
	if rows.children, err = a.DB.ListFamilyChildren(ctx, treeID); err != nil {
		return nil, err
	}
	if rows.sources, err = a.DB.ListSources(ctx, treeID); err != nil {
		return nil, err
	}
	if rows.repositories, err = a.DB.ListRepositories(ctx, treeID); err != nil {
		return nil, err
	}
	if rows.notes, err = a.DB.ListNotes(ctx, treeID); err != nil {
		return nil, err
	}
	if rows.media, err = a.DB.ListMedia(ctx, treeID); err != nil {
		return nil, err
	}
	if rows.events, err = a.DB.ListEvents(ctx, treeID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (a *App) loadTree(ctx context.Context, treeID int) (*gedcom.Parsed, error) {
	rows, err := a.readTree(ctx, treeID)
	if err != nil {
		return nil, err
	}
	p := gedcom.NewParsed()

	individualXrefs := map[int]string{}
	for _, row := range rows.individuals {
		individualXrefs[row.ID] = row.GedcomXref.String
	}
	familyXrefs := map[int]string{}
	for _, row := range rows.families {
		familyXrefs[row.ID] = row.GedcomXref.String
	}
	repositoryXrefs := map[int]string{}
	for _, row := range rows.repositories {
		repositoryXrefs[row.ID] = row.GedcomXref.String
	}

	individualEvents := map[int][]gedcom.Event{}
	familyEvents := map[int][]gedcom.Event{}
	for _, row := range rows.events {
		ev, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		switch {
		case row.IndividualID.Valid:
			id := int(row.IndividualID.Int64)
			individualEvents[id] = append(individualEvents[id], ev)
		case row.FamilyID.Valid:
			id := int(row.FamilyID.Int64)
			familyEvents[id] = append(familyEvents[id], ev)
		}
	}
	childXrefs := map[int][]string{}
	for _, c := range rows.children {
		if x := individualXrefs[c.IndividualID]; x != "" {
			childXrefs[c.FamilyID] = append(childXrefs[c.FamilyID], x)
		}
	}

	for _, row := range rows.individuals {
		refs, extra, err := decodeStored(row.RefsJSON, row.AdditionalData)
		if err != nil {
			return nil, errors.Wrapf(err, "persona %s", row.GedcomXref.String)
		}
		ind := &gedcom.Individual{
			Xref:              row.GedcomXref.String,
			FirstName:         row.FirstName.String,
			LastName:          row.LastName.String,
			Sex:               row.Sex,
			Events:            individualEvents[row.ID],
			FamilyChildXrefs:  refs.FamilyChild,
			FamilySpouseXrefs: refs.FamilySpouse,
			SourceXrefs:       refs.Sources,
			NoteXrefs:         refs.Notes,
			MediaXrefs:        refs.Media,
			Notes:             refs.InlineNotes,
			AdditionalData:    extra,
		}
		for _, n := range refs.Names {
			ind.Names = append(ind.Names, gedcom.PersonalName{
				Full: n.Full, Given: n.Given, Surname: n.Surname, Suffix: n.Suffix, AdditionalData: n.Extra,
			})
		}
		if len(ind.Names) == 0 && row.FullName.Valid {
			ind.Names = []gedcom.PersonalName{{
				Full:    gedcomName(row.FirstName.String, row.LastName.String),
				Given:   row.FirstName.String,
				Surname: row.LastName.String,
			}}
		}
		p.AddIndividual(ind)
	}

	for _, row := range rows.families {
		refs, extra, err := decodeStored(row.RefsJSON, row.AdditionalData)
		if err != nil {
			return nil, errors.Wrapf(err, "família %s", row.GedcomXref.String)
		}
		p.AddFamily(&gedcom.Family{
			Xref:           row.GedcomXref.String,
			HusbandXref:    xrefOf(individualXrefs, row.HusbandID),
			WifeXref:       xrefOf(individualXrefs, row.WifeID),
			ChildXrefs:     childXrefs[row.ID],
			Events:         familyEvents[row.ID],
			SourceXrefs:    refs.Sources,
			NoteXrefs:      refs.Notes,
			MediaXrefs:     refs.Media,
			Notes:          refs.InlineNotes,
			AdditionalData: extra,
		})
	}

	for _, row := range rows.sources {
		refs, extra, err := decodeStored(row.RefsJSON, row.AdditionalData)
		if err != nil {
			return nil, errors.Wrapf(err, "font %s", row.GedcomXref.String)
		}
		p.AddSource(&gedcom.Source{
			Xref:           row.GedcomXref.String,
			Title:          row.Title.String,
			Author:         row.Author.String,
			Publication:    row.Publication.String,
			Abbreviation:   row.Abbreviation.String,
			Text:           row.Text.String,
			RepositoryXref: xrefOf(repositoryXrefs, row.RepositoryID),
			CallNumber:     row.CallNumber.String,
			NoteXrefs:      refs.Notes,
			AdditionalData: extra,
		})
	}

	for _, row := range rows.repositories {
		extra, err := gedcom.ParseAdditionalData(row.AdditionalData.String)
		if err != nil {
			return nil, errors.Wrapf(err, "repositori %s", row.GedcomXref.String)
		}
		p.AddRepository(&gedcom.Repository{
			Xref:           row.GedcomXref.String,
			Name:           row.Name.String,
			Address:        row.Address.String,
			Phone:          row.Phone.String,
			Email:          row.Email.String,
			Website:        row.Website.String,
			AdditionalData: extra,
		})
	}

	for _, row := range rows.notes {
		extra, err := gedcom.ParseAdditionalData(row.AdditionalData.String)
		if err != nil {
			return nil, errors.Wrapf(err, "nota %s", row.GedcomXref.String)
		}
		p.AddNote(&gedcom.Note{Xref: row.GedcomXref.String, Text: row.Text.String, AdditionalData: extra})
	}

	for _, row := range rows.media {
		extra, err := gedcom.ParseAdditionalData(row.AdditionalData.String)
		if err != nil {
			return nil, errors.Wrapf(err, "media %s", row.GedcomXref.String)
		}
		p.AddMedia(&gedcom.Media{
			Xref:           row.GedcomXref.String,
			File:           row.FilePath.String,
			Format:         row.Format.String,
			Title:          row.Title.String,
			AdditionalData: extra,
		})
	}
	return p, nil
}

func eventFromRow(row db.Event) (gedcom.Event, error) {
	refs, extra, err := decodeStored(row.RefsJSON, row.AdditionalData)
	if err != nil {
		return gedcom.Event{}, errors.Wrapf(err, "esdeveniment %d", row.ID)
	}
	return gedcom.Event{
		Tag:            row.EventType,
		Type:           row.EventSubtype.String,
		Date:           gedcom.NormalizeDate(row.DateRaw.String),
		Place:          row.Place.String,
		Description:    row.Description.String,
		SourceXrefs:    refs.Sources,
		NoteXrefs:      refs.Notes,
		AdditionalData: extra,
	}, nil
}

func decodeStored(refsJSON, additional sql.NullString) (entityRefs, gedcom.AdditionalData, error) {
	var refs entityRefs
	if refsJSON.Valid && refsJSON.String != "" {
		if err := json.Unmarshal([]byte(refsJSON.String), &refs); err != nil {
			return refs, nil, errors.Wrap(err, "refs_json malmès")
		}
	}
	extra, err := gedcom.ParseAdditionalData(additional.String)
	if err != nil {
		return refs, nil, errors.Wrap(err, "additional_data malmès")
	}
	return refs, extra, nil
}

func xrefOf(xrefs map[int]string, id sql.NullInt64) string {
	if !id.Valid {
		return ""
	}
	return xrefs[int(id.Int64)]
}

// gedcomName escriu el nom amb el cognom entre barres.
func gedcomName(given, surname string) string {
	if surname == "" {
		return given
	}
	if given == "" {
		return "/" + surname + "/"
	}
	return given + " /" + surname + "/"
}
