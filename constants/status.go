package constants

// ProcessingStatus is the canonical status for rows in processing_records.
type ProcessingStatus string

// Stable values (store these exact strings in the DB).
const (
	StatusPending    ProcessingStatus = "PENDING"    // record created, analysis not claimed
	StatusProcessing ProcessingStatus = "PROCESSING" // analysis in flight
	StatusCompleted  ProcessingStatus = "COMPLETED"  // terminal: extraction stored
	StatusFailed     ProcessingStatus = "FAILED"     // terminal: error message stored
)

// Terminal reports whether a status admits no further transitions.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
