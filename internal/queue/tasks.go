package queue

const (
	TypeDocumentIngest     = "document:ingest"
	TypeDocumentEvaluate   = "document:evaluate"
	TypeRFIRecheck         = "rfi:recheck"
	TypeChangeEventRecheck = "change_event:recheck"

	TypeAgingSweep    = "cron:rfi_aging"
	TypeSeveritySweep = "cron:severity_sweep"
	TypeDailySnapshot = "cron:daily_snapshot"
	TypeWeeklySummary = "cron:weekly_summary"
)

type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
}

// DocumentEvaluatePayload is the "document embedded" event consumed by the
// rule engine's document-scoped evaluation.
type DocumentEvaluatePayload struct {
	DocumentID string `json:"document_id"`
}

type RFIRecheckPayload struct {
	RFIID string `json:"rfi_id"`
}

type ChangeEventRecheckPayload struct {
	ChangeEventID string `json:"change_event_id"`
}
