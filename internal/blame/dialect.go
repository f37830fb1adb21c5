package blame

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkline-labs/inkline/internal/notes"
)

var blameConflictTarget = []clause.Column{{Name: "note_id"}, {Name: "line_number"}}

var blameConflictAssignments = clause.AssignmentColumns([]string{"author_user_id", "revision_id", "touched_at"})

// Dialect isolates the two backend-specific pieces of the save protocol:
// how the note row is read under concurrency, and how a blame row is
// upserted. The protocol sequence itself is expressed once in Store.Save and
// must behave identically on every dialect.
type Dialect interface {
	Name() string
	// LockNote reads the note row so that concurrent saves to the same note
	// serialize instead of diffing against a stale baseline.
	LockNote(tx *gorm.DB, noteID int64) (notes.Note, error)
	// UpsertBlameRow inserts the row or overwrites author/revision/timestamp
	// when (note_id, line_number) already exists. Must be a single idempotent
	// statement, never delete-then-insert.
	UpsertBlameRow(tx *gorm.DB, row *BlameRow) error
}

// SQLiteDialect targets the embedded single-writer backend. The connection
// pool is capped at one writer, so a plain read inside the transaction is
// already serialized; SQLite has no SELECT ... FOR UPDATE to express.
type SQLiteDialect struct{}

// Name identifies the dialect in logs.
func (SQLiteDialect) Name() string {
	return "sqlite"
}

// LockNote reads the note row on the single-writer connection.
func (SQLiteDialect) LockNote(tx *gorm.DB, noteID int64) (notes.Note, error) {
	var note notes.Note
	err := tx.Where("id = ?", noteID).Take(&note).Error
	return note, err
}

// UpsertBlameRow writes the row via ON CONFLICT DO UPDATE.
func (SQLiteDialect) UpsertBlameRow(tx *gorm.DB, row *BlameRow) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   blameConflictTarget,
		DoUpdates: blameConflictAssignments,
	}).Create(row).Error
}

// PostgresDialect targets the client/server backend and takes a row lock on
// the note so concurrent saves to the same note queue behind each other.
type PostgresDialect struct{}

// Name identifies the dialect in logs.
func (PostgresDialect) Name() string {
	return "postgres"
}

// LockNote issues SELECT ... FOR UPDATE on the note row.
func (PostgresDialect) LockNote(tx *gorm.DB, noteID int64) (notes.Note, error) {
	var note notes.Note
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", noteID).
		Take(&note).Error
	return note, err
}

// UpsertBlameRow writes the row via ON CONFLICT (note_id, line_number) DO UPDATE.
func (PostgresDialect) UpsertBlameRow(tx *gorm.DB, row *BlameRow) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   blameConflictTarget,
		DoUpdates: blameConflictAssignments,
	}).Create(row).Error
}
