package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	SendToPatient(patientID string, msgType string, payload interface{})
}

// Message types pushed to patient connections
const (
	MsgDraftSynced = "draft_synced"
	MsgSubmitted   = "submitted"
	MsgReset       = "reset"
)
