package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidPublicID indicates that a public note identifier is empty or exceeds storage bounds.
	ErrInvalidPublicID = errors.New("notes: invalid public note id")
	// ErrInvalidWorkspaceID indicates that a workspace slug is empty or exceeds storage bounds.
	ErrInvalidWorkspaceID = errors.New("notes: invalid workspace id")
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("notes: invalid user id")
)

// PublicID represents a validated durable public note identifier.
type PublicID string

// NewPublicID validates raw input and returns a PublicID.
func NewPublicID(rawInput string) (PublicID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPublicID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidPublicID, maxIdentifierLength)
	}
	return PublicID(trimmed), nil
}

// String returns the underlying string identifier.
func (id PublicID) String() string {
	return string(id)
}

// WorkspaceID represents a validated workspace slug.
type WorkspaceID string

// NewWorkspaceID validates raw input and returns a WorkspaceID.
func NewWorkspaceID(rawInput string) (WorkspaceID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidWorkspaceID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidWorkspaceID, maxIdentifierLength)
	}
	return WorkspaceID(trimmed), nil
}

// String returns the underlying string identifier.
func (id WorkspaceID) String() string {
	return string(id)
}

// UserID represents a validated user identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// Note models the persisted note row. The attribution engine treats it as a
// single mutable text blob plus metadata; note lifecycle is owned here.
type Note struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PublicID    string    `gorm:"column:public_id;size:190;not null;uniqueIndex:idx_notes_public_id"`
	WorkspaceID string    `gorm:"column:workspace_id;size:190;not null;index:idx_notes_workspace"`
	Content     string    `gorm:"column:content;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}
