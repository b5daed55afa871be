package audit

import (
	"context"

	"github.com/riverqueue/river"
)

type RecordFailedSearchArgs struct {
	Username   string  `json:"username"`
	AccessHash *string `json:"access_hash,omitempty"`
}

func (RecordFailedSearchArgs) Kind() string { return "record_failed_search" }

// Inserter is the contract the worker needs to persist a record.
type Inserter interface {
	Insert(ctx context.Context, username string, accessHash *string) error
}

// RecordFailedSearchWorker writes audit records enqueued by the search
// coordinator. Running the insert as a queued job keeps audit storage
// hiccups off the caller's request path; river retries cover transient
// failures.
type RecordFailedSearchWorker struct {
	river.WorkerDefaults[RecordFailedSearchArgs]
	repo Inserter
}

func NewRecordFailedSearchWorker(repo Inserter) *RecordFailedSearchWorker {
	return &RecordFailedSearchWorker{repo: repo}
}

func (w *RecordFailedSearchWorker) Work(ctx context.Context, job *river.Job[RecordFailedSearchArgs]) error {
	return w.repo.Insert(ctx, job.Args.Username, job.Args.AccessHash)
}
