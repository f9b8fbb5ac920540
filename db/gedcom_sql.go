package db

import (
	"context"
)

// gedcomTx són les escriptures d'importació lligades a una transacció.
type gedcomTx struct {
	sqlHelper
}

func (t *gedcomTx) UpsertIndividual(ctx context.Context, ind *Individual) (int, error) {
	return t.upsertByXref(ctx, "individuals",
		[]string{"tree_id", "gedcom_xref", "first_name", "last_name", "full_name", "sex",
			"birth_date", "birth_year", "birth_place", "death_date", "death_year", "death_place",
			"refs_json", "additional_data"},
		[]interface{}{ind.TreeID, ind.GedcomXref, ind.FirstName, ind.LastName, ind.FullName, ind.Sex,
			ind.BirthDate, ind.BirthYear, ind.BirthPlace, ind.DeathDate, ind.DeathYear, ind.DeathPlace,
			ind.RefsJSON, ind.AdditionalData})
}

func (t *gedcomTx) UpsertFamily(ctx context.Context, fam *Family) (int, error) {
	return t.upsertByXref(ctx, "families",
		[]string{"tree_id", "gedcom_xref", "husband_id", "wife_id",
			"marriage_date", "marriage_year", "marriage_place", "refs_json", "additional_data"},
		[]interface{}{fam.TreeID, fam.GedcomXref, fam.HusbandID, fam.WifeID,
			fam.MarriageDate, fam.MarriageYear, fam.MarriagePlace, fam.RefsJSON, fam.AdditionalData})
}

// ReplaceFamilyChildren substitueix la llista de fills d'una família mantenint child_order.
func (t *gedcomTx) ReplaceFamilyChildren(ctx context.Context, familyID int, children []FamilyChild) error {
	if _, err := t.exec(ctx, `DELETE FROM family_children WHERE family_id = ?`, familyID); err != nil {
		return err
	}
	for _, c := range children {
		if _, err := t.exec(ctx, `INSERT INTO family_children (family_id, individual_id, child_order) VALUES (?, ?, ?)`,
			familyID, c.IndividualID, c.ChildOrder); err != nil {
			return err
		}
	}
	return nil
}

func (t *gedcomTx) UpsertSource(ctx context.Context, src *Source) (int, error) {
	return t.upsertByXref(ctx, "sources",
		[]string{"tree_id", "gedcom_xref", "title", "author", "publication", "abbreviation",
			"text_content", "repository_id", "call_number", "refs_json", "additional_data"},
		[]interface{}{src.TreeID, src.GedcomXref, src.Title, src.Author, src.Publication, src.Abbreviation,
			src.Text, src.RepositoryID, src.CallNumber, src.RefsJSON, src.AdditionalData})
}

func (t *gedcomTx) UpsertRepository(ctx context.Context, repo *Repository) (int, error) {
	return t.upsertByXref(ctx, "repositories",
		[]string{"tree_id", "gedcom_xref", "name", "address", "phone", "email", "website", "additional_data"},
		[]interface{}{repo.TreeID, repo.GedcomXref, repo.Name, repo.Address, repo.Phone, repo.Email,
			repo.Website, repo.AdditionalData})
}

func (t *gedcomTx) UpsertNote(ctx context.Context, n *Note) (int, error) {
	return t.upsertByXref(ctx, "notes",
		[]string{"tree_id", "gedcom_xref", "text_content", "additional_data"},
		[]interface{}{n.TreeID, n.GedcomXref, n.Text, n.AdditionalData})
}

func (t *gedcomTx) UpsertMedia(ctx context.Context, m *Media) (int, error) {
	return t.upsertByXref(ctx, "media",
		[]string{"tree_id", "gedcom_xref", "file_path", "format", "title", "additional_data"},
		[]interface{}{m.TreeID, m.GedcomXref, m.FilePath, m.Format, m.Title, m.AdditionalData})
}

// ReplaceEvents esborra els esdeveniments del propietari i insereix els nous.
func (t *gedcomTx) ReplaceEvents(ctx context.Context, owner EventOwner, events []Event) error {
	column, ownerID := "individual_id", owner.IndividualID
	if owner.FamilyID > 0 {
		column, ownerID = "family_id", owner.FamilyID
	}
	if _, err := t.exec(ctx, `DELETE FROM events WHERE `+column+` = ?`, ownerID); err != nil {
		return err
	}
	for _, ev := range events {
		ev.TreeID = owner.TreeID
		ev.IndividualID = nullableInt(owner.IndividualID)
		ev.FamilyID = nullableInt(owner.FamilyID)
		query, args, err := t.builder().Insert("events").
			Columns("tree_id", "individual_id", "family_id", "event_type", "event_subtype",
				"date_raw", "date_text", "date_qualifier", "date_year", "date_end_year",
				"place", "description", "refs_json", "additional_data").
			Values(ev.TreeID, ev.IndividualID, ev.FamilyID, ev.EventType, ev.EventSubtype,
				ev.DateRaw, ev.DateText, ev.DateQualifier, ev.DateYear, ev.DateEndYear,
				ev.Place, ev.Description, ev.RefsJSON, ev.AdditionalData).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := t.ext.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}
