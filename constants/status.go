package constants

// ValidationStatus is the per-invoice classification produced by validation.
type ValidationStatus string

// Stable values (written verbatim into reports).
const (
	StatusValid   ValidationStatus = "VALID"
	StatusInvalid ValidationStatus = "INVALID"
)

// JobStatus is the canonical status for rows in the run ledger.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED" // full pipeline produced a record
	JobStatusFailed    JobStatus = "FAILED"    // pipeline error, file excluded from results
)
