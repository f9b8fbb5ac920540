package db

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

func (h sqlHelper) CreateTree(ctx context.Context, t *Tree) (int, error) {
	id, err := h.insertReturningID(ctx, `INSERT INTO trees (owner_user_id, name) VALUES (?, ?)`, t.OwnerUserID, t.Name)
	if err != nil {
		return 0, errors.Wrap(err, "no puc crear l'arbre")
	}
	t.ID = id
	return id, nil
}

func (h sqlHelper) GetTree(ctx context.Context, id int) (*Tree, error) {
	var t Tree
	err := h.get(ctx, &t, `SELECT id, owner_user_id, name, created_at FROM trees WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTree esborra l'arbre; les entitats cauen en cascada.
func (h sqlHelper) DeleteTree(ctx context.Context, id int) error {
	_, err := h.exec(ctx, `DELETE FROM trees WHERE id = ?`, id)
	return err
}

func (h sqlHelper) CountTreeRows(ctx context.Context, treeID int) (TreeCounts, error) {
	var c TreeCounts
	targets := []struct {
		dest  *int
		table string
	}{
		{&c.Individuals, "individuals"},
		{&c.Families, "families"},
		{&c.Sources, "sources"},
		{&c.Repositories, "repositories"},
		{&c.Notes, "notes"},
		{&c.Media, "media"},
		{&c.Events, "events"},
	}
	for _, t := range targets {
		q, args, err := h.builder().Select("COUNT(*)").From(t.table).Where(sq.Eq{"tree_id": treeID}).ToSql()
		if err != nil {
			return c, err
		}
		if err := h.ext.QueryRowxContext(ctx, q, args...).Scan(t.dest); err != nil {
			return c, errors.Wrapf(err, "comptant %s", t.table)
		}
	}
	q, args, err := h.builder().Select("COUNT(*)").From("family_children fc").
		Join("families f ON f.id = fc.family_id").Where(sq.Eq{"f.tree_id": treeID}).ToSql()
	if err != nil {
		return c, err
	}
	if err := h.ext.QueryRowxContext(ctx, q, args...).Scan(&c.FamilyChildren); err != nil {
		return c, errors.Wrap(err, "comptant family_children")
	}
	return c, nil
}

func (h sqlHelper) ListIndividuals(ctx context.Context, treeID int) ([]Individual, error) {
	var out []Individual
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "tree_id", "gedcom_xref", "first_name", "last_name", "full_name", "sex",
			"birth_date", "birth_year", "birth_place", "death_date", "death_year", "death_place",
			"refs_json", "additional_data").
		From("individuals").Where(sq.Eq{"tree_id": treeID}).OrderBy("id"))
	return out, err
}

func (h sqlHelper) ListFamilies(ctx context.Context, treeID int) ([]Family, error) {
	var out []Family
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "tree_id", "gedcom_xref", "husband_id", "wife_id",
			"marriage_date", "marriage_year", "marriage_place", "refs_json", "additional_data").
		From("families").Where(sq.Eq{"tree_id": treeID}).OrderBy("id"))
	return out, err
}

func (h sqlHelper) ListFamilyChildren(ctx context.Context, treeID int) ([]FamilyChild, error) {
	var out []FamilyChild
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("fc.family_id", "fc.individual_id", "fc.child_order").
		From("family_children fc").
		Join("families f ON f.id = fc.family_id").
		Where(sq.Eq{"f.tree_id": treeID}).
		OrderBy("fc.family_id", "fc.child_order"))
	return out, err
}

func (h sqlHelper) ListSources(ctx context.Context, treeID int) ([]Source, error) {
	var out []Source
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "tree_id", "gedcom_xref", "title", "author", "publication", "abbreviation",
			"text_content", "repository_id", "call_number", "refs_json", "additional_data").
		From("sources").Where(sq.Eq{"tree_id": treeID}).OrderBy("id"))
	return out, err
}

func (h sqlHelper) ListRepositories(ctx context.Context, treeID int) ([]Repository, error) {
	var out []Repository
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "tree_id", "gedcom_xref", "name", "address", "phone", "email", "website", "additional_data").
		From("repositories").Where(sq.Eq{"tree_id": treeID}).OrderBy("id"))
	return out, err
}

func (h sqlHelper) ListNotes(ctx context.Context, treeID int) ([]Note, error) {
	var out []Note
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "tree_id", "gedcom_xref", "text_content", "additional_data").
		From("notes").Where(sq.Eq{"tree_id": treeID}).OrderBy("id"))
	return out, err
}

func (h sqlHelper) ListMedia(ctx context.Context, treeID int) ([]Media, error) {
	var out []Media
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "tree_id", "gedcom_xref", "file_path", "format", "title", "additional_data").
		From("media").Where(sq.Eq{"tree_id": treeID}).OrderBy("id"))
	return out, err
}

func (h sqlHelper) ListEvents(ctx context.Context, treeID int) ([]Event, error) {
	var out []Event
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "tree_id", "individual_id", "family_id", "event_type", "event_subtype",
			"date_raw", "date_text", "date_qualifier", "date_year", "date_end_year",
			"place", "description", "refs_json", "additional_data").
		From("events").Where(sq.Eq{"tree_id": treeID}).OrderBy("id"))
	return out, err
}
