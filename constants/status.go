package constants

// DocumentStatus is the per-document outcome of a scan.
type DocumentStatus string

// Stable values (reported in summaries and the admin API).
const (
	DocumentStatusQueued    DocumentStatus = "QUEUED"
	DocumentStatusExtracted DocumentStatus = "EXTRACTED"
	DocumentStatusDuplicate DocumentStatus = "DUPLICATE" // sink already held the id
	DocumentStatusFailed    DocumentStatus = "FAILED"
)
