package model

import (
	"fmt"
	"time"
)

// DraftKeyPrefix namespaces draft keys in the durable store.
const DraftKeyPrefix = "sdoh-survey"

// Draft is the in-progress state of one patient's screening.
type Draft struct {
	SchemaVersion int             `json:"schemaVersion"`
	Gating        GatingAnswerSet `json:"gating"`
	Answers       AnswerSet       `json:"answers"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DraftKey returns the durable storage key for a patient's draft.
func DraftKey(schemaVersion int, patientID string) string {
	return fmt.Sprintf("%s:v%d:%s", DraftKeyPrefix, schemaVersion, patientID)
}
