package blame

import "time"

// ProjectBlame walks the edit script and produces the blame table for the
// next content, one row per line numbered contiguously from 1. Equal ops
// carry the previous line's attribution forward unchanged; insert ops
// attribute the line to the current author and revision. Delete ops emit
// nothing.
//
// The previous table is keyed by 1-based line number. When an equal op finds
// no previous row for its line the row falls back to the current author; the
// affected previous line numbers are returned so the caller can log the
// blame-table drift instead of masking it.
func ProjectBlame(ops []Op, previous map[int]BlameRow, noteID int64, authorUserID string, revisionID int64, now time.Time) ([]BlameRow, []int) {
	rows := make([]BlameRow, 0, len(ops))
	var missing []int

	nextLineNumber := 1
	for _, op := range ops {
		switch op.Kind {
		case OpEqual:
			prevLineNumber := op.PrevIndex + 1
			carried, ok := previous[prevLineNumber]
			if ok {
				rows = append(rows, BlameRow{
					NoteID:       noteID,
					LineNumber:   nextLineNumber,
					AuthorUserID: carried.AuthorUserID,
					RevisionID:   carried.RevisionID,
					TouchedAt:    carried.TouchedAt,
				})
			} else {
				missing = append(missing, prevLineNumber)
				rows = append(rows, BlameRow{
					NoteID:       noteID,
					LineNumber:   nextLineNumber,
					AuthorUserID: authorUserID,
					RevisionID:   revisionID,
					TouchedAt:    now,
				})
			}
			nextLineNumber++
		case OpInsert:
			rows = append(rows, BlameRow{
				NoteID:       noteID,
				LineNumber:   nextLineNumber,
				AuthorUserID: authorUserID,
				RevisionID:   revisionID,
				TouchedAt:    now,
			})
			nextLineNumber++
		case OpDelete:
			// The deleted line has no counterpart in the new content.
		}
	}

	return rows, missing
}
