package audit

import "context"

// EnqueueFunc enqueues a record job. Provided by main as a closure over
// river.Client.Insert.
type EnqueueFunc func(ctx context.Context, args RecordFailedSearchArgs) error

// Recorder is the write side handed to the search coordinator.
type Recorder struct {
	enqueue EnqueueFunc
}

func NewRecorder(enqueue EnqueueFunc) *Recorder {
	return &Recorder{enqueue: enqueue}
}

// Record enqueues one failed-search record.
func (r *Recorder) Record(ctx context.Context, username string, accessHash *string) error {
	return r.enqueue(ctx, RecordFailedSearchArgs{Username: username, AccessHash: accessHash})
}
