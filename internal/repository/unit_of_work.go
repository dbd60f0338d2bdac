package repository

import (
	"context"
	"fmt"
)

// CommitReport describes how much of a unit of work reached the store.
type CommitReport struct {
	TotalOps        int
	CommittedOps    int
	Chunks          int
	CommittedChunks int
}

// Partial reports whether some but not all chunks were committed.
func (r CommitReport) Partial() bool {
	return r.CommittedChunks > 0 && r.CommittedChunks < r.Chunks
}

// PartialCommitError wraps a chunk failure together with the progress made.
type PartialCommitError struct {
	Report CommitReport
	Err    error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("commit chunk %d/%d failed after %d/%d ops: %v",
		e.Report.CommittedChunks+1, e.Report.Chunks, e.Report.CommittedOps, e.Report.TotalOps, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// CommitChunked splits ops into transactions of at most chunkSize writes and
// commits them in order. Chunks are atomic individually, not together; the
// returned report says how far the unit of work got.
func CommitChunked(ctx context.Context, store Store, ops []Op, chunkSize int) (CommitReport, error) {
	if chunkSize <= 0 || chunkSize > MaxBatchOps {
		chunkSize = MaxBatchOps
	}

	report := CommitReport{TotalOps: len(ops)}
	if len(ops) == 0 {
		return report, nil
	}
	report.Chunks = (len(ops) + chunkSize - 1) / chunkSize

	for start := 0; start < len(ops); start += chunkSize {
		end := start + chunkSize
		if end > len(ops) {
			end = len(ops)
		}
		if err := ctx.Err(); err != nil {
			return report, &PartialCommitError{Report: report, Err: err}
		}
		if err := store.Commit(ctx, ops[start:end]); err != nil {
			return report, &PartialCommitError{Report: report, Err: err}
		}
		report.CommittedChunks++
		report.CommittedOps += end - start
	}

	return report, nil
}
