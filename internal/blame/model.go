package blame

import "time"

// EventTypeNoteUpdated is published after every committed save.
const EventTypeNoteUpdated = "note.updated"

// Revision stores an immutable full-content snapshot of one accepted save.
// Revisions are append-only; nothing in the engine mutates or deletes them.
type Revision struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	WorkspaceID  string    `gorm:"column:workspace_id;size:190;not null;index:idx_revisions_workspace"`
	NoteID       int64     `gorm:"column:note_id;not null;index:idx_revisions_note"`
	AuthorUserID string    `gorm:"column:author_user_id;size:190;not null"`
	Content      string    `gorm:"column:content;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Revision) TableName() string {
	return "revisions"
}

// BlameRow attributes one currently-live line of a note to the author and
// revision that last touched it. For a note the stored line numbers are
// exactly 1..lineCount, enforced by upserts keyed on (note_id, line_number).
type BlameRow struct {
	NoteID       int64     `gorm:"column:note_id;primaryKey;autoIncrement:false"`
	LineNumber   int       `gorm:"column:line_number;primaryKey;autoIncrement:false"`
	AuthorUserID string    `gorm:"column:author_user_id;size:190;not null"`
	RevisionID   int64     `gorm:"column:revision_id;not null"`
	TouchedAt    time.Time `gorm:"column:touched_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (BlameRow) TableName() string {
	return "note_line_blame"
}

// BlameRowView is the caller-facing shape of one blame row with the author
// profile resolved.
type BlameRowView struct {
	LineNumber        int       `json:"line_number"`
	AuthorUserID      string    `json:"author_user_id"`
	AuthorDisplayName string    `json:"author_display_name,omitempty"`
	AuthorEmail       string    `json:"author_email,omitempty"`
	RevisionID        int64     `json:"revision_id"`
	TouchedAt         time.Time `json:"touched_at"`
}

// RevisionSummary lists one revision without its content payload.
type RevisionSummary struct {
	ID           int64     `json:"id"`
	AuthorUserID string    `json:"author_user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// SaveResult reports the outcome of a committed save. Blame is populated only
// when the caller asked for it.
type SaveResult struct {
	RevisionID int64          `json:"revision_id"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Blame      []BlameRowView `json:"blame,omitempty"`
}

// NoteUpdatedEvent is the fire-and-forget signal emitted after a commit so
// other observers can invalidate cached views.
type NoteUpdatedEvent struct {
	WorkspaceID string `json:"workspace_id"`
	Type        string `json:"type"`
	NoteID      string `json:"note_id"`
}

// NotificationPort receives post-commit events. Implementations must not be
// awaited inside the save transaction; a publish failure never fails a save.
type NotificationPort interface {
	PublishNoteUpdated(event NoteUpdatedEvent) error
}

// AuthorProfile carries the resolved display fields for a blame view.
type AuthorProfile struct {
	DisplayName string
	Email       string
}
