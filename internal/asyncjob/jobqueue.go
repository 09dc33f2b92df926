// Package asyncjob implements generators, async functions, Promises, and
// the microtask job queue (spec.md §4.H) on top of internal/vm's Coroutine
// suspension mechanism (component F). It is the one package that imports
// both internal/vm and internal/realm to wire the two together; the
// top-level engine construction (engine.go) is the only caller.
package asyncjob

// JobQueue is the FIFO microtask queue spec.md §4.H and §8 scenario 5
// describe: promise reactions and async-function resumptions enqueue here
// rather than running inline, and RunJobs drains it to empty — including
// jobs a running job itself enqueues, matching ECMA-262's job-queue model
// (grounded on spec.md §4.H directly; no pack example models a JS job
// queue, so this is original plumbing sized to the spec).
type JobQueue struct {
	jobs []func() error
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{}
}

// Enqueue appends a microtask to run on the next RunJobs drain.
func (q *JobQueue) Enqueue(job func() error) {
	q.jobs = append(q.jobs, job)
}

// RunJobs drains the queue to empty, running jobs in FIFO order. A job
// that itself enqueues more jobs (e.g. a promise reaction resolving
// another promise) sees them picked up in the same drain, per spec.md §8
// scenario 5's run_jobs() semantics. The first job to return an error
// stops the drain and surfaces it to the embedder (spec.md §6
// Context::run_jobs); jobs already queued remain for the next call.
func (q *JobQueue) RunJobs() error {
	for len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		if err := job(); err != nil {
			return err
		}
	}
	return nil
}

// Pending reports whether any microtask is still queued.
func (q *JobQueue) Pending() bool { return len(q.jobs) > 0 }
