package blame

import "strings"

// OpKind identifies a single line-level edit instruction.
type OpKind uint8

const (
	// OpEqual pairs an unchanged line across both versions.
	OpEqual OpKind = iota
	// OpDelete removes a line from the previous version.
	OpDelete
	// OpInsert adds a line from the next version.
	OpInsert
)

// Op describes one step of the edit script transforming the previous line
// sequence into the next. PrevIndex and NextIndex are 0-based; an index not
// applicable to the op kind is -1.
type Op struct {
	Kind      OpKind
	PrevIndex int
	NextIndex int
}

// SplitLines splits note content into its line sequence. Empty content has no
// lines; otherwise lines are split on "\n" with no normalization, so a
// trailing newline yields a final empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// DiffLines computes a minimal edit script between two line sequences using a
// longest-common-subsequence table. Lines are compared by exact string
// equality. On ties between a delete and an insert the delete is emitted
// first; the tie-break is kept stable so attribution output is reproducible
// against existing history.
func DiffLines(previous, next []string) []Op {
	prevLen := len(previous)
	nextLen := len(next)

	// table[i][j] holds the LCS length of previous[i:] and next[j:].
	table := make([][]int, prevLen+1)
	for i := range table {
		table[i] = make([]int, nextLen+1)
	}
	for i := prevLen - 1; i >= 0; i-- {
		for j := nextLen - 1; j >= 0; j-- {
			if previous[i] == next[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	ops := make([]Op, 0, prevLen+nextLen)
	i, j := 0, 0
	for i < prevLen && j < nextLen {
		switch {
		case previous[i] == next[j]:
			ops = append(ops, Op{Kind: OpEqual, PrevIndex: i, NextIndex: j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			ops = append(ops, Op{Kind: OpDelete, PrevIndex: i, NextIndex: -1})
			i++
		default:
			ops = append(ops, Op{Kind: OpInsert, PrevIndex: -1, NextIndex: j})
			j++
		}
	}
	for ; i < prevLen; i++ {
		ops = append(ops, Op{Kind: OpDelete, PrevIndex: i, NextIndex: -1})
	}
	for ; j < nextLen; j++ {
		ops = append(ops, Op{Kind: OpInsert, PrevIndex: -1, NextIndex: j})
	}
	return ops
}
