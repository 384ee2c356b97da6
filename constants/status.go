package constants

// RunStatus is the canonical status for rows in extract_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning RunStatus = "RUNNING" // in progress
	RunStatusOCROK   RunStatus = "OCR_OK"  // text normalized
	RunStatusMerged  RunStatus = "MERGED"  // fields extracted, merged and written
	RunStatusFailed  RunStatus = "FAILED"  // terminal failure
)
