package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkline-labs/inkline/internal/blame"
	"github.com/inkline-labs/inkline/internal/notes"
)

const migrationBackfillMissingBlame = "2026-05-12_backfill_missing_blame"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillMissingBlame, apply: backfillMissingBlame},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillMissingBlame repairs notes written before the attribution table
// existed: every line of such a note is attributed to the author of its
// latest revision. Notes without any revision are left alone; their first
// save will build the table from scratch.
func backfillMissingBlame(db *gorm.DB) error {
	var orphaned []notes.Note
	err := db.
		Where("content <> ''").
		Where("id NOT IN (?)", db.Model(&blame.BlameRow{}).Distinct("note_id")).
		Find(&orphaned).Error
	if err != nil {
		return err
	}

	for _, note := range orphaned {
		var latest blame.Revision
		err := db.Where("note_id = ?", note.ID).Order("id DESC").Take(&latest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		lines := blame.SplitLines(note.Content)
		rows := make([]blame.BlameRow, 0, len(lines))
		for index := range lines {
			rows = append(rows, blame.BlameRow{
				NoteID:       note.ID,
				LineNumber:   index + 1,
				AuthorUserID: latest.AuthorUserID,
				RevisionID:   latest.ID,
				TouchedAt:    latest.CreatedAt,
			})
		}
		if len(rows) == 0 {
			continue
		}
		if err := db.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}
