package reconcilequeue

// SearchSweepJob drives one pass over searching matches. Carries no
// arguments; the sweep reads its worklist from the database.
type SearchSweepJob struct{}

// Kind returns the job type identifier for River.
func (SearchSweepJob) Kind() string { return "reconcile_search_sweep" }

// QueueSweepJob drives one pass over queued matches.
type QueueSweepJob struct{}

// Kind returns the job type identifier for River.
func (QueueSweepJob) Kind() string { return "reconcile_queue_sweep" }
