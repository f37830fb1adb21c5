package blame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoteNotFound indicates the note id does not resolve to a stored note.
	ErrNoteNotFound = errors.New("blame: note not found")
	// ErrNoteNotInWorkspace indicates the note exists under a different
	// workspace than the caller claimed. The API layer surfaces it as
	// not-found so existence does not leak across workspaces.
	ErrNoteNotInWorkspace = errors.New("blame: note not in workspace")

	errMissingDatabase = errors.New("database handle is required")
	errMissingDialect  = errors.New("storage dialect is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries an operation.reason code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opStoreNew      = "blame.store.new"
	opSave          = "blame.save"
	opListBlame     = "blame.list"
	opListRevisions = "blame.list_revisions"

	reasonMissingDatabase    = "missing_database"
	reasonMissingDialect     = "missing_dialect"
	reasonNoteNotFound       = "note_not_found"
	reasonWorkspaceMismatch  = "workspace_mismatch"
	reasonBlameReadFailed    = "blame_read_failed"
	reasonRevisionInsert     = "revision_insert_failed"
	reasonNoteUpdateFailed   = "note_update_failed"
	reasonBlameUpsertFailed  = "blame_upsert_failed"
	reasonBlameTrimFailed    = "blame_trim_failed"
	reasonQueryFailed        = "query_failed"
	reasonProfileLookup      = "profile_lookup_failed"
	reasonNotifyFailed       = "notify_failed"
	reasonInvariantViolation = "previous_blame_missing"
)

func newStoreError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// AuthorDirectory resolves author user ids to display profiles for blame
// views. Implementations live with the user registry; the store only consumes
// the lookup.
type AuthorDirectory interface {
	Profiles(ctx context.Context, userIDs []string) (map[string]AuthorProfile, error)
}

// StoreConfig describes the dependencies of the attribution engine.
type StoreConfig struct {
	Database  *gorm.DB
	Dialect   Dialect
	Clock     func() time.Time
	Notifier  NotificationPort
	Directory AuthorDirectory
	Logger    *zap.Logger
}

// Store orchestrates the transactional save protocol: diff the content,
// project the blame table, and persist content, revision, and attribution
// all-or-nothing. It holds no mutable state beyond the database handle, so
// concurrent saves to different notes need no coordination here.
type Store struct {
	db        *gorm.DB
	dialect   Dialect
	clock     func() time.Time
	notifier  NotificationPort
	directory AuthorDirectory
	logger    *zap.Logger
}

// NewStore validates the configuration and constructs the engine.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, newStoreError(opStoreNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.Dialect == nil {
		return nil, newStoreError(opStoreNew, reasonMissingDialect, errMissingDialect)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Store{
		db:        cfg.Database,
		dialect:   cfg.Dialect,
		clock:     clock,
		notifier:  cfg.Notifier,
		directory: cfg.Directory,
		logger:    logger,
	}, nil
}

// SaveRequest is one accepted write against a resolved note.
type SaveRequest struct {
	NoteID       int64
	NotePublicID string
	WorkspaceID  string
	Content      string
	AuthorUserID string
	IncludeBlame bool
}

// Save runs the attribution protocol inside a single transaction: lock and
// read the note, read its blame table, diff previous against new content,
// append a revision, update the note, upsert the projected blame rows, and
// trim rows past the new line count. Nothing is visible until commit; any
// failure rolls the whole write back.
//
// After a successful commit the configured notification port is told about
// the update. That publish is best-effort: a failure is logged and swallowed,
// never unwinding the save.
func (s *Store) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	now := s.clock().UTC()
	var result SaveResult
	var projected []BlameRow

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := s.dialect.LockNote(tx, req.NoteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		if err != nil {
			s.logError(opSave, reasonQueryFailed, err, zap.Int64("note_id", req.NoteID))
			return newStoreError(opSave, reasonQueryFailed, err)
		}
		if note.WorkspaceID != req.WorkspaceID {
			return ErrNoteNotInWorkspace
		}

		var previousRows []BlameRow
		if err := tx.Where("note_id = ?", req.NoteID).
			Order("line_number ASC").
			Find(&previousRows).Error; err != nil {
			s.logError(opSave, reasonBlameReadFailed, err, zap.Int64("note_id", req.NoteID))
			return newStoreError(opSave, reasonBlameReadFailed, err)
		}
		previous := make(map[int]BlameRow, len(previousRows))
		for _, row := range previousRows {
			previous[row.LineNumber] = row
		}

		previousLines := SplitLines(note.Content)
		nextLines := SplitLines(req.Content)
		ops := DiffLines(previousLines, nextLines)

		revision := Revision{
			WorkspaceID:  note.WorkspaceID,
			NoteID:       req.NoteID,
			AuthorUserID: req.AuthorUserID,
			Content:      req.Content,
			CreatedAt:    now,
		}
		if err := tx.Create(&revision).Error; err != nil {
			s.logError(opSave, reasonRevisionInsert, err, zap.Int64("note_id", req.NoteID))
			return newStoreError(opSave, reasonRevisionInsert, err)
		}

		if err := tx.Model(&note).
			Updates(map[string]interface{}{"content": req.Content, "updated_at": now}).Error; err != nil {
			s.logError(opSave, reasonNoteUpdateFailed, err, zap.Int64("note_id", req.NoteID))
			return newStoreError(opSave, reasonNoteUpdateFailed, err)
		}

		rows, missingPrevLines := ProjectBlame(ops, previous, req.NoteID, req.AuthorUserID, revision.ID, now)
		if len(missingPrevLines) > 0 {
			// Blame-table drift: an unchanged line had no previous
			// attribution. The line falls back to the current author.
			s.logger.Warn("blame invariant violation",
				zap.String("operation", opSave),
				zap.String("reason", reasonInvariantViolation),
				zap.Int64("note_id", req.NoteID),
				zap.Ints("previous_line_numbers", missingPrevLines))
		}
		for i := range rows {
			if err := s.dialect.UpsertBlameRow(tx, &rows[i]); err != nil {
				s.logError(opSave, reasonBlameUpsertFailed, err,
					zap.Int64("note_id", req.NoteID),
					zap.Int("line_number", rows[i].LineNumber))
				return newStoreError(opSave, reasonBlameUpsertFailed, err)
			}
		}

		if err := tx.Where("note_id = ? AND line_number > ?", req.NoteID, len(nextLines)).
			Delete(&BlameRow{}).Error; err != nil {
			s.logError(opSave, reasonBlameTrimFailed, err, zap.Int64("note_id", req.NoteID))
			return newStoreError(opSave, reasonBlameTrimFailed, err)
		}

		projected = rows
		result = SaveResult{RevisionID: revision.ID, UpdatedAt: now}
		return nil
	})
	if txErr != nil {
		return SaveResult{}, txErr
	}

	if req.IncludeBlame {
		// The projected rows are already in memory; the profile lookup
		// runs on its own connection, never inside the write transaction.
		// The save is committed at this point, so a failed lookup only
		// degrades the view to bare user ids.
		profiles, err := s.resolveProfiles(ctx, projected)
		if err != nil {
			s.logger.Warn("blame view enrichment degraded",
				zap.String("operation", opSave),
				zap.String("reason", reasonProfileLookup),
				zap.Int64("note_id", req.NoteID),
				zap.Error(err))
			profiles = nil
		}
		result.Blame = assembleBlameViews(projected, profiles)
	}

	s.notifyUpdated(req)

	return result, nil
}

// ListBlame returns the current attribution table for a note with author
// profiles resolved, ordered by line number.
func (s *Store) ListBlame(ctx context.Context, noteID int64) ([]BlameRowView, error) {
	var rows []BlameRow
	if err := s.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("line_number ASC").
		Find(&rows).Error; err != nil {
		s.logError(opListBlame, reasonQueryFailed, err, zap.Int64("note_id", noteID))
		return nil, newStoreError(opListBlame, reasonQueryFailed, err)
	}
	return s.blameViews(ctx, rows)
}

// ListRevisions returns the append-only revision history for a note, newest
// first, without content payloads.
func (s *Store) ListRevisions(ctx context.Context, noteID int64) ([]RevisionSummary, error) {
	var revisions []Revision
	if err := s.db.WithContext(ctx).
		Select("id", "author_user_id", "created_at").
		Where("note_id = ?", noteID).
		Order("id DESC").
		Find(&revisions).Error; err != nil {
		s.logError(opListRevisions, reasonQueryFailed, err, zap.Int64("note_id", noteID))
		return nil, newStoreError(opListRevisions, reasonQueryFailed, err)
	}

	summaries := make([]RevisionSummary, 0, len(revisions))
	for _, revision := range revisions {
		summaries = append(summaries, RevisionSummary{
			ID:           revision.ID,
			AuthorUserID: revision.AuthorUserID,
			CreatedAt:    revision.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *Store) blameViews(ctx context.Context, rows []BlameRow) ([]BlameRowView, error) {
	profiles, err := s.resolveProfiles(ctx, rows)
	if err != nil {
		s.logError(opListBlame, reasonProfileLookup, err)
		return nil, newStoreError(opListBlame, reasonProfileLookup, err)
	}
	return assembleBlameViews(rows, profiles), nil
}

func (s *Store) resolveProfiles(ctx context.Context, rows []BlameRow) (map[string]AuthorProfile, error) {
	if s.directory == nil || len(rows) == 0 {
		return nil, nil
	}
	seen := map[string]struct{}{}
	userIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.AuthorUserID]; ok {
			continue
		}
		seen[row.AuthorUserID] = struct{}{}
		userIDs = append(userIDs, row.AuthorUserID)
	}
	return s.directory.Profiles(ctx, userIDs)
}

func assembleBlameViews(rows []BlameRow, profiles map[string]AuthorProfile) []BlameRowView {
	views := make([]BlameRowView, 0, len(rows))
	for _, row := range rows {
		view := BlameRowView{
			LineNumber:   row.LineNumber,
			AuthorUserID: row.AuthorUserID,
			RevisionID:   row.RevisionID,
			TouchedAt:    row.TouchedAt,
		}
		if profile, ok := profiles[row.AuthorUserID]; ok {
			view.AuthorDisplayName = profile.DisplayName
			view.AuthorEmail = profile.Email
		}
		views = append(views, view)
	}
	return views
}

func (s *Store) notifyUpdated(req SaveRequest) {
	if s.notifier == nil {
		return
	}
	event := NoteUpdatedEvent{
		WorkspaceID: req.WorkspaceID,
		Type:        EventTypeNoteUpdated,
		NoteID:      req.NotePublicID,
	}
	if err := s.notifier.PublishNoteUpdated(event); err != nil {
		s.logger.Warn("post-commit notification failed",
			zap.String("operation", opSave),
			zap.String("reason", reasonNotifyFailed),
			zap.String("note_id", req.NotePublicID),
			zap.Error(err))
	}
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("blame store error", attrs...)
}
