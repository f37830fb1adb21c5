package blame

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/inkline-labs/inkline/internal/notes"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type captureNotifier struct {
	mu     sync.Mutex
	events []NoteUpdatedEvent
	fail   bool
}

func (n *captureNotifier) PublishNoteUpdated(event NoteUpdatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("notifier unavailable")
	}
	n.events = append(n.events, event)
	return nil
}

type staticDirectory struct {
	profiles map[string]AuthorProfile
}

func (d *staticDirectory) Profiles(_ context.Context, userIDs []string) (map[string]AuthorProfile, error) {
	resolved := make(map[string]AuthorProfile, len(userIDs))
	for _, userID := range userIDs {
		if profile, ok := d.profiles[userID]; ok {
			resolved[userID] = profile
		}
	}
	return resolved, nil
}

// failingDialect fails the nth blame upsert, after the revision insert and
// note update have already happened inside the transaction.
type failingDialect struct {
	SQLiteDialect
	failOnUpsert int
	upserts      int
}

func (d *failingDialect) UpsertBlameRow(tx *gorm.DB, row *BlameRow) error {
	d.upserts++
	if d.upserts == d.failOnUpsert {
		return errors.New("injected upsert failure")
	}
	return d.SQLiteDialect.UpsertBlameRow(tx, row)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inkline_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&notes.Note{}, &Revision{}, &BlameRow{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestStore(t *testing.T, db *gorm.DB, dialect Dialect, cfgEdits ...func(*StoreConfig)) (*Store, *captureNotifier, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Unix(1700000000, 0).UTC()}
	notifier := &captureNotifier{}
	cfg := StoreConfig{
		Database: db,
		Dialect:  dialect,
		Clock:    clock.Now,
		Notifier: notifier,
	}
	for _, edit := range cfgEdits {
		edit(&cfg)
	}

	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	return store, notifier, clock
}

func seedNote(t *testing.T, db *gorm.DB, workspaceID, publicID string) notes.Note {
	t.Helper()
	note := notes.Note{
		PublicID:    publicID,
		WorkspaceID: workspaceID,
		Content:     "",
		CreatedAt:   time.Unix(1699990000, 0).UTC(),
		UpdatedAt:   time.Unix(1699990000, 0).UTC(),
	}
	if err := db.Create(&note).Error; err != nil {
		t.Fatalf("failed to seed note: %v", err)
	}
	return note
}

func loadBlame(t *testing.T, db *gorm.DB, noteID int64) []BlameRow {
	t.Helper()
	var rows []BlameRow
	if err := db.Where("note_id = ?", noteID).Order("line_number ASC").Find(&rows).Error; err != nil {
		t.Fatalf("failed to load blame rows: %v", err)
	}
	return rows
}

func TestSaveFirstRevisionAttributesAllLines(t *testing.T) {
	db := newTestDB(t)
	store, notifier, _ := newTestStore(t, db, SQLiteDialect{})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	result, err := store.Save(context.Background(), SaveRequest{
		NoteID:       note.ID,
		NotePublicID: note.PublicID,
		WorkspaceID:  "ws-1",
		Content:      "a\nb",
		AuthorUserID: "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RevisionID == 0 {
		t.Fatalf("expected an assigned revision id")
	}

	var stored notes.Note
	if err := db.Take(&stored, note.ID).Error; err != nil {
		t.Fatalf("failed to reload note: %v", err)
	}
	if stored.Content != "a\nb" {
		t.Fatalf("note content not updated: %q", stored.Content)
	}

	rows := loadBlame(t, db, note.ID)
	if len(rows) != 2 {
		t.Fatalf("expected 2 blame rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.LineNumber != i+1 || row.AuthorUserID != "u1" || row.RevisionID != result.RevisionID {
			t.Fatalf("unexpected blame row: %#v", row)
		}
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.events))
	}
	event := notifier.events[0]
	if event.Type != EventTypeNoteUpdated || event.WorkspaceID != "ws-1" || event.NoteID != "note-pub-1" {
		t.Fatalf("unexpected event: %#v", event)
	}
}

func TestSaveCarriesAttributionForUnchangedLines(t *testing.T) {
	db := newTestDB(t)
	store, _, clock := newTestStore(t, db, SQLiteDialect{})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	first, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb\nc", AuthorUserID: "u1",
	})
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	firstTouched := clock.Now().UTC()

	clock.Advance(10 * time.Minute)
	second, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nX\nc", AuthorUserID: "u2",
	})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	rows := loadBlame(t, db, note.ID)
	if len(rows) != 3 {
		t.Fatalf("expected 3 blame rows, got %d", len(rows))
	}
	if rows[0].AuthorUserID != "u1" || rows[0].RevisionID != first.RevisionID {
		t.Fatalf("line 1 should keep first attribution: %#v", rows[0])
	}
	if !rows[0].TouchedAt.Equal(firstTouched) {
		t.Fatalf("line 1 touched_at changed: %v vs %v", rows[0].TouchedAt, firstTouched)
	}
	if rows[1].AuthorUserID != "u2" || rows[1].RevisionID != second.RevisionID {
		t.Fatalf("line 2 should carry new attribution: %#v", rows[1])
	}
	if rows[2].AuthorUserID != "u1" || rows[2].RevisionID != first.RevisionID {
		t.Fatalf("line 3 should keep first attribution: %#v", rows[2])
	}
}

func TestSaveTrimsBlameWhenContentShrinks(t *testing.T) {
	db := newTestDB(t)
	store, _, clock := newTestStore(t, db, SQLiteDialect{})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	first, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb\nc", AuthorUserID: "u1",
	})
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	clock.Advance(time.Minute)
	if _, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nc", AuthorUserID: "u2",
	}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	rows := loadBlame(t, db, note.ID)
	if len(rows) != 2 {
		t.Fatalf("expected trailing blame to be trimmed, got %d rows", len(rows))
	}
	// The surviving line 3 occupies line number 2 with its old attribution.
	if rows[1].LineNumber != 2 || rows[1].AuthorUserID != "u1" || rows[1].RevisionID != first.RevisionID {
		t.Fatalf("unexpected surviving attribution: %#v", rows[1])
	}
}

func TestSaveIdenticalContentAppendsRevisionKeepsBlame(t *testing.T) {
	db := newTestDB(t)
	store, _, clock := newTestStore(t, db, SQLiteDialect{})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	first, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb", AuthorUserID: "u1",
	})
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	before := loadBlame(t, db, note.ID)

	clock.Advance(time.Hour)
	second, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb", AuthorUserID: "u2",
	})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if second.RevisionID == first.RevisionID {
		t.Fatalf("revisions must append even when content is unchanged")
	}

	var revisionCount int64
	if err := db.Model(&Revision{}).Where("note_id = ?", note.ID).Count(&revisionCount).Error; err != nil {
		t.Fatalf("failed to count revisions: %v", err)
	}
	if revisionCount != 2 {
		t.Fatalf("expected 2 revisions, got %d", revisionCount)
	}

	after := loadBlame(t, db, note.ID)
	if len(after) != len(before) {
		t.Fatalf("blame row count changed: %d vs %d", len(after), len(before))
	}
	for i := range after {
		if after[i].AuthorUserID != before[i].AuthorUserID ||
			after[i].RevisionID != before[i].RevisionID ||
			!after[i].TouchedAt.Equal(before[i].TouchedAt) {
			t.Fatalf("blame row %d changed on no-op save: %#v vs %#v", i+1, after[i], before[i])
		}
	}
}

func TestSaveRollsBackEntirelyOnInjectedFailure(t *testing.T) {
	db := newTestDB(t)
	dialect := &failingDialect{failOnUpsert: 2}
	store, notifier, _ := newTestStore(t, db, dialect)
	note := seedNote(t, db, "ws-1", "note-pub-1")

	// Seed one committed revision first with a working dialect.
	healthy, _, _ := newTestStore(t, db, SQLiteDialect{})
	if _, err := healthy.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb", AuthorUserID: "u1",
	}); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	blameBefore := loadBlame(t, db, note.ID)
	var revisionsBefore int64
	if err := db.Model(&Revision{}).Count(&revisionsBefore).Error; err != nil {
		t.Fatalf("failed to count revisions: %v", err)
	}

	_, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nY\nz", AuthorUserID: "u2",
	})
	if err == nil {
		t.Fatalf("expected injected failure to surface")
	}

	var stored notes.Note
	if err := db.Take(&stored, note.ID).Error; err != nil {
		t.Fatalf("failed to reload note: %v", err)
	}
	if stored.Content != "a\nb" {
		t.Fatalf("note content leaked from failed save: %q", stored.Content)
	}

	var revisionsAfter int64
	if err := db.Model(&Revision{}).Count(&revisionsAfter).Error; err != nil {
		t.Fatalf("failed to count revisions: %v", err)
	}
	if revisionsAfter != revisionsBefore {
		t.Fatalf("revision row leaked from failed save: %d vs %d", revisionsAfter, revisionsBefore)
	}

	blameAfter := loadBlame(t, db, note.ID)
	if len(blameAfter) != len(blameBefore) {
		t.Fatalf("blame rows leaked from failed save: %d vs %d", len(blameAfter), len(blameBefore))
	}
	for i := range blameAfter {
		if blameAfter[i] != blameBefore[i] {
			t.Fatalf("blame row %d changed after rollback: %#v vs %#v", i+1, blameAfter[i], blameBefore[i])
		}
	}

	if len(notifier.events) != 0 {
		t.Fatalf("no notification should follow a failed save, got %d", len(notifier.events))
	}
}

func TestSaveUnknownNoteReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	store, _, _ := newTestStore(t, db, SQLiteDialect{})

	_, err := store.Save(context.Background(), SaveRequest{
		NoteID: 999, WorkspaceID: "ws-1", Content: "a", AuthorUserID: "u1",
	})
	if !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestSaveWorkspaceMismatchReturnsTypedError(t *testing.T) {
	db := newTestDB(t)
	store, notifier, _ := newTestStore(t, db, SQLiteDialect{})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	_, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-other",
		Content: "a", AuthorUserID: "u1",
	})
	if !errors.Is(err, ErrNoteNotInWorkspace) {
		t.Fatalf("expected ErrNoteNotInWorkspace, got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("rejected save must not notify")
	}
}

func TestSaveIncludeBlameResolvesAuthorProfiles(t *testing.T) {
	db := newTestDB(t)
	directory := &staticDirectory{profiles: map[string]AuthorProfile{
		"u1": {DisplayName: "Ada", Email: "ada@example.com"},
	}}
	store, _, _ := newTestStore(t, db, SQLiteDialect{}, func(cfg *StoreConfig) {
		cfg.Directory = directory
	})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	result, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb", AuthorUserID: "u1", IncludeBlame: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Blame) != 2 {
		t.Fatalf("expected blame in result, got %d rows", len(result.Blame))
	}
	if result.Blame[0].AuthorDisplayName != "Ada" || result.Blame[0].AuthorEmail != "ada@example.com" {
		t.Fatalf("author profile not resolved: %#v", result.Blame[0])
	}
}

// dbBackedDirectory resolves profiles through the same database handle the
// store writes with, the way the production user registry does.
type dbBackedDirectory struct {
	db       *gorm.DB
	profiles map[string]AuthorProfile
}

func (d *dbBackedDirectory) Profiles(ctx context.Context, userIDs []string) (map[string]AuthorProfile, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&Revision{}).Count(&count).Error; err != nil {
		return nil, err
	}
	resolved := make(map[string]AuthorProfile, len(userIDs))
	for _, userID := range userIDs {
		if profile, ok := d.profiles[userID]; ok {
			resolved[userID] = profile
		}
	}
	return resolved, nil
}

type failingDirectory struct{}

func (failingDirectory) Profiles(context.Context, []string) (map[string]AuthorProfile, error) {
	return nil, errors.New("directory offline")
}

type failingLockDialect struct {
	SQLiteDialect
}

func (failingLockDialect) LockNote(*gorm.DB, int64) (notes.Note, error) {
	return notes.Note{}, errors.New("lock query failed")
}

func TestSaveIncludeBlameWithSingleConnectionDirectory(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	directory := &dbBackedDirectory{db: db, profiles: map[string]AuthorProfile{
		"u1": {DisplayName: "Ada"},
	}}
	store, _, _ := newTestStore(t, db, SQLiteDialect{}, func(cfg *StoreConfig) {
		cfg.Directory = directory
	})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := store.Save(ctx, SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb", AuthorUserID: "u1", IncludeBlame: true,
	})
	if err != nil {
		t.Fatalf("save with db-backed directory failed: %v", err)
	}
	if len(result.Blame) != 2 || result.Blame[0].AuthorDisplayName != "Ada" {
		t.Fatalf("expected enriched blame in result: %#v", result.Blame)
	}
}

func TestSaveIncludeBlameDegradesWhenDirectoryFails(t *testing.T) {
	db := newTestDB(t)
	store, notifier, _ := newTestStore(t, db, SQLiteDialect{}, func(cfg *StoreConfig) {
		cfg.Directory = failingDirectory{}
	})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	result, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb", AuthorUserID: "u1", IncludeBlame: true,
	})
	if err != nil {
		t.Fatalf("directory failure must not fail the committed save: %v", err)
	}
	if len(result.Blame) != 2 {
		t.Fatalf("expected blame rows despite failed enrichment, got %d", len(result.Blame))
	}
	if result.Blame[0].AuthorUserID != "u1" || result.Blame[0].AuthorDisplayName != "" {
		t.Fatalf("expected bare attribution without profile: %#v", result.Blame[0])
	}

	rows := loadBlame(t, db, note.ID)
	if len(rows) != 2 {
		t.Fatalf("save did not commit: %d blame rows", len(rows))
	}
	if len(notifier.events) != 1 {
		t.Fatalf("committed save must notify, got %d events", len(notifier.events))
	}
}

func TestSaveSerializesConcurrentWritesToSameNote(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	store, notifier, _ := newTestStore(t, db, SQLiteDialect{})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	if _, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a\nb\nc", AuthorUserID: "u0",
	}); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	writes := map[string]string{
		"u1": "a\nb\nc\nd",
		"u2": "a\nB\nc",
	}
	var wg sync.WaitGroup
	saveErrs := make(chan error, len(writes))
	for author, content := range writes {
		wg.Add(1)
		go func(author, content string) {
			defer wg.Done()
			_, err := store.Save(context.Background(), SaveRequest{
				NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
				Content: content, AuthorUserID: author,
			})
			saveErrs <- err
		}(author, content)
	}
	wg.Wait()
	close(saveErrs)
	for err := range saveErrs {
		if err != nil {
			t.Fatalf("concurrent save failed: %v", err)
		}
	}

	var revisionCount int64
	if err := db.Model(&Revision{}).Where("note_id = ?", note.ID).Count(&revisionCount).Error; err != nil {
		t.Fatalf("failed to count revisions: %v", err)
	}
	if revisionCount != 3 {
		t.Fatalf("expected 3 committed revisions, got %d", revisionCount)
	}

	var stored notes.Note
	if err := db.Take(&stored, note.ID).Error; err != nil {
		t.Fatalf("failed to reload note: %v", err)
	}
	if stored.Content != writes["u1"] && stored.Content != writes["u2"] {
		t.Fatalf("final content is not a committed write: %q", stored.Content)
	}

	// Whoever lost the race diffed against the winner's committed baseline,
	// so the blame table must line up with the final content exactly.
	rows := loadBlame(t, db, note.ID)
	finalLines := SplitLines(stored.Content)
	if len(rows) != len(finalLines) {
		t.Fatalf("blame table out of step with content: %d rows for %d lines", len(rows), len(finalLines))
	}
	var revisions []Revision
	if err := db.Where("note_id = ?", note.ID).Find(&revisions).Error; err != nil {
		t.Fatalf("failed to load revisions: %v", err)
	}
	knownRevisions := make(map[int64]struct{}, len(revisions))
	for _, revision := range revisions {
		knownRevisions[revision.ID] = struct{}{}
	}
	for i, row := range rows {
		if row.LineNumber != i+1 {
			t.Fatalf("line numbers not contiguous: %#v", rows)
		}
		if _, ok := knownRevisions[row.RevisionID]; !ok {
			t.Fatalf("blame row references unknown revision: %#v", row)
		}
	}

	if len(notifier.events) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifier.events))
	}
}

func TestSaveLockFailureLogsQueryFailed(t *testing.T) {
	db := newTestDB(t)
	core, logs := observer.New(zap.ErrorLevel)
	store, _, _ := newTestStore(t, db, failingLockDialect{}, func(cfg *StoreConfig) {
		cfg.Logger = zap.New(core)
	})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	_, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a", AuthorUserID: "u1",
	})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "blame.save.query_failed" {
		t.Fatalf("expected blame.save.query_failed, got %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 error log entry, got %d", len(entries))
	}
	if reason := entries[0].ContextMap()["reason"]; reason != "query_failed" {
		t.Fatalf("log reason disagrees with error code: %v", reason)
	}
}

func TestSaveSwallowsNotifierFailure(t *testing.T) {
	db := newTestDB(t)
	store, notifier, _ := newTestStore(t, db, SQLiteDialect{})
	notifier.fail = true
	note := seedNote(t, db, "ws-1", "note-pub-1")

	if _, err := store.Save(context.Background(), SaveRequest{
		NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
		Content: "a", AuthorUserID: "u1",
	}); err != nil {
		t.Fatalf("notification failure must not fail the save: %v", err)
	}
}

func TestListRevisionsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	store, _, clock := newTestStore(t, db, SQLiteDialect{})
	note := seedNote(t, db, "ws-1", "note-pub-1")

	for _, save := range []struct {
		content string
		author  string
	}{{"a", "u1"}, {"a\nb", "u2"}, {"a\nb\nc", "u1"}} {
		if _, err := store.Save(context.Background(), SaveRequest{
			NoteID: note.ID, NotePublicID: note.PublicID, WorkspaceID: "ws-1",
			Content: save.content, AuthorUserID: save.author,
		}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		clock.Advance(time.Minute)
	}

	revisions, err := store.ListRevisions(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(revisions) != 3 {
		t.Fatalf("expected 3 revisions, got %d", len(revisions))
	}
	for i := 1; i < len(revisions); i++ {
		if revisions[i].ID >= revisions[i-1].ID {
			t.Fatalf("revisions not ordered newest first: %#v", revisions)
		}
	}
	if revisions[0].AuthorUserID != "u1" || revisions[1].AuthorUserID != "u2" {
		t.Fatalf("unexpected authors: %#v", revisions)
	}
}
