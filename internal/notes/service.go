package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoteNotFound indicates the public id does not resolve inside the workspace.
	ErrNoteNotFound = errors.New("notes: note not found")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
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
	opServiceNew = "notes.service.new"
	opCreateNote = "notes.create"
	opResolve    = "notes.resolve"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues public note identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the note registry.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns note lifecycle and public-id resolution. The attribution
// engine takes internal ids only; this is the caller-side resolver in front
// of it.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the registry.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Create registers an empty note inside the workspace. Content arrives later
// through the attribution engine so the first save produces the first
// revision and blame table.
func (s *Service) Create(ctx context.Context, workspaceID WorkspaceID) (Note, error) {
	publicID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateNote, "id_generation_failed", err,
			zap.String("workspace_id", workspaceID.String()))
		return Note{}, newServiceError(opCreateNote, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	note := Note{
		PublicID:    publicID,
		WorkspaceID: workspaceID.String(),
		Content:     "",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreateNote, "insert_failed", err,
			zap.String("workspace_id", workspaceID.String()))
		return Note{}, newServiceError(opCreateNote, "insert_failed", err)
	}

	return note, nil
}

// Resolve maps a public note id within a workspace to the stored note. A note
// living in a different workspace resolves to ErrNoteNotFound so existence
// does not leak across workspaces.
func (s *Service) Resolve(ctx context.Context, workspaceID WorkspaceID, publicID PublicID) (Note, error) {
	var note Note
	err := s.db.WithContext(ctx).
		Where("public_id = ? AND workspace_id = ?", publicID.String(), workspaceID.String()).
		Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		s.logError(opResolve, "query_failed", err,
			zap.String("workspace_id", workspaceID.String()),
			zap.String("public_id", publicID.String()))
		return Note{}, newServiceError(opResolve, "query_failed", err)
	}
	return note, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("notes service error", attrs...)
}
