package db

import (
	"database/sql"
	"time"
)

// Estats d'ImportProgress.
const (
	ImportStatusPending    = "PENDING"
	ImportStatusProcessing = "PROCESSING"
	ImportStatusCompleted  = "COMPLETED"
	ImportStatusFailed     = "FAILED"
)

// Estats de la cua import_jobs.
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Tipus de notificació d'importació.
const (
	NotificationImportCompleted = "gedcom_import_completed"
	NotificationImportFailed    = "gedcom_import_failed"
)

type Tree struct {
	ID          int          `db:"id"`
	OwnerUserID int          `db:"owner_user_id"`
	Name        string       `db:"name"`
	CreatedAt   sql.NullTime `db:"created_at"`
}

type Individual struct {
	ID             int            `db:"id"`
	TreeID         int            `db:"tree_id"`
	GedcomXref     sql.NullString `db:"gedcom_xref"`
	FirstName      sql.NullString `db:"first_name"`
	LastName       sql.NullString `db:"last_name"`
	FullName       sql.NullString `db:"full_name"`
	Sex            string         `db:"sex"`
	BirthDate      sql.NullString `db:"birth_date"`
	BirthYear      sql.NullInt64  `db:"birth_year"`
	BirthPlace     sql.NullString `db:"birth_place"`
	DeathDate      sql.NullString `db:"death_date"`
	DeathYear      sql.NullInt64  `db:"death_year"`
	DeathPlace     sql.NullString `db:"death_place"`
	RefsJSON       sql.NullString `db:"refs_json"`
	AdditionalData sql.NullString `db:"additional_data"`
}

type Family struct {
	ID             int            `db:"id"`
	TreeID         int            `db:"tree_id"`
	GedcomXref     sql.NullString `db:"gedcom_xref"`
	HusbandID      sql.NullInt64  `db:"husband_id"`
	WifeID         sql.NullInt64  `db:"wife_id"`
	MarriageDate   sql.NullString `db:"marriage_date"`
	MarriageYear   sql.NullInt64  `db:"marriage_year"`
	MarriagePlace  sql.NullString `db:"marriage_place"`
	RefsJSON       sql.NullString `db:"refs_json"`
	AdditionalData sql.NullString `db:"additional_data"`
}

type FamilyChild struct {
	FamilyID     int `db:"family_id"`
	IndividualID int `db:"individual_id"`
	ChildOrder   int `db:"child_order"`
}

type Source struct {
	ID             int            `db:"id"`
	TreeID         int            `db:"tree_id"`
	GedcomXref     sql.NullString `db:"gedcom_xref"`
	Title          sql.NullString `db:"title"`
	Author         sql.NullString `db:"author"`
	Publication    sql.NullString `db:"publication"`
	Abbreviation   sql.NullString `db:"abbreviation"`
	Text           sql.NullString `db:"text_content"`
	RepositoryID   sql.NullInt64  `db:"repository_id"`
	CallNumber     sql.NullString `db:"call_number"`
	RefsJSON       sql.NullString `db:"refs_json"`
	AdditionalData sql.NullString `db:"additional_data"`
}

type Repository struct {
	ID             int            `db:"id"`
	TreeID         int            `db:"tree_id"`
	GedcomXref     sql.NullString `db:"gedcom_xref"`
	Name           sql.NullString `db:"name"`
	Address        sql.NullString `db:"address"`
	Phone          sql.NullString `db:"phone"`
	Email          sql.NullString `db:"email"`
	Website        sql.NullString `db:"website"`
	AdditionalData sql.NullString `db:"additional_data"`
}

type Note struct {
	ID             int            `db:"id"`
	TreeID         int            `db:"tree_id"`
	GedcomXref     sql.NullString `db:"gedcom_xref"`
	Text           sql.NullString `db:"text_content"`
	AdditionalData sql.NullString `db:"additional_data"`
}

type Media struct {
	ID             int            `db:"id"`
	TreeID         int            `db:"tree_id"`
	GedcomXref     sql.NullString `db:"gedcom_xref"`
	FilePath       sql.NullString `db:"file_path"`
	Format         sql.NullString `db:"format"`
	Title          sql.NullString `db:"title"`
	AdditionalData sql.NullString `db:"additional_data"`
}

type Event struct {
	ID             int            `db:"id"`
	TreeID         int            `db:"tree_id"`
	IndividualID   sql.NullInt64  `db:"individual_id"`
	FamilyID       sql.NullInt64  `db:"family_id"`
	EventType      string         `db:"event_type"`
	EventSubtype   sql.NullString `db:"event_subtype"`
	DateRaw        sql.NullString `db:"date_raw"`
	DateText       sql.NullString `db:"date_text"`
	DateQualifier  sql.NullString `db:"date_qualifier"`
	DateYear       sql.NullInt64  `db:"date_year"`
	DateEndYear    sql.NullInt64  `db:"date_end_year"`
	Place          sql.NullString `db:"place"`
	Description    sql.NullString `db:"description"`
	RefsJSON       sql.NullString `db:"refs_json"`
	AdditionalData sql.NullString `db:"additional_data"`
}

// EventOwner identifica a qui pertanyen els esdeveniments: persona o família.
type EventOwner struct {
	TreeID       int
	IndividualID int
	FamilyID     int
}

// TreeCounts compta les files d'un arbre per taula.
type TreeCounts struct {
	Individuals    int
	Families       int
	FamilyChildren int
	Sources        int
	Repositories   int
	Notes          int
	Media          int
	Events         int
}

type ImportProgress struct {
	ID               int            `db:"id"`
	UserID           int            `db:"user_id"`
	TreeID           int            `db:"tree_id"`
	Status           string         `db:"status"`
	TotalRecords     int            `db:"total_records"`
	ProcessedRecords int            `db:"processed_records"`
	ErrorMessage     sql.NullString `db:"error_message"`
	SummaryJSON      sql.NullString `db:"summary_json"`
	StartedAt        sql.NullTime   `db:"started_at"`
	FinishedAt       sql.NullTime   `db:"finished_at"`
	UpdatedAt        sql.NullTime   `db:"updated_at"`
}

// ImportProgressFilter filtra llistats d'ImportProgress; els zeros no filtren.
type ImportProgressFilter struct {
	UserID int
	TreeID int
	Status string
	Limit  int
}

type ImportJob struct {
	ID               int            `db:"id"`
	JobUUID          string         `db:"job_uuid"`
	UserID           int            `db:"user_id"`
	TreeID           int            `db:"tree_id"`
	FilePath         string         `db:"file_path"`
	OriginalFilename string         `db:"original_filename"`
	Status           string         `db:"status"`
	Attempts         int            `db:"attempts"`
	MaxAttempts      int            `db:"max_attempts"`
	AvailableAt      time.Time      `db:"available_at"`
	LockedAt         sql.NullTime   `db:"locked_at"`
	LastError        sql.NullString `db:"last_error"`
	CreatedAt        sql.NullTime   `db:"created_at"`
	UpdatedAt        sql.NullTime   `db:"updated_at"`
}

type ImportNotification struct {
	ID          int            `db:"id"`
	UserID      int            `db:"user_id"`
	TreeID      sql.NullInt64  `db:"tree_id"`
	Kind        string         `db:"kind"`
	Title       string         `db:"title"`
	Body        sql.NullString `db:"body"`
	PayloadJSON sql.NullString `db:"payload_json"`
	DedupeKey   string         `db:"dedupe_key"`
	Status      string         `db:"status"`
	CreatedAt   sql.NullTime   `db:"created_at"`
}
