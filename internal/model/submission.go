package model

import "time"

// Submission is the document persisted for a completed screening.
type Submission struct {
	ID               string                   `json:"id" bson:"_id"`
	PatientID        string                   `json:"patientId" bson:"patientId"`
	RawAnswers       map[string]interface{}   `json:"rawAnswers" bson:"rawAnswers"`
	GatingAnswers    GatingAnswerSet          `json:"gatingAnswers" bson:"gatingAnswers"`
	OverallScore     int                      `json:"overallScore" bson:"overallScore"`
	IsHighRisk       bool                     `json:"isHighRisk" bson:"isHighRisk"`
	PerCategoryRisk  map[Category]RiskVerdict `json:"perCategoryRisk" bson:"perCategoryRisk"`
	RiskCategoryList []Category               `json:"riskCategoryList" bson:"riskCategoryList"`
	CreatedAt        time.Time                `json:"createdAt" bson:"createdAt"`
}

// NewSubmission builds the persistence payload from a finished screening.
func NewSubmission(id, patientID string, gating GatingAnswerSet, answers AnswerSet, result RiskResult, now time.Time) *Submission {
	perCategory := make(map[Category]RiskVerdict, len(result.PerCategory))
	for c, v := range result.PerCategory {
		perCategory[c] = v
	}
	return &Submission{
		ID:               id,
		PatientID:        patientID,
		RawAnswers:       answers.Export(),
		GatingAnswers:    gating.Clone(),
		OverallScore:     result.Overall.Count,
		IsHighRisk:       result.Overall.IsHighRisk,
		PerCategoryRisk:  perCategory,
		RiskCategoryList: append([]Category(nil), result.RiskCategories...),
		CreatedAt:        now,
	}
}
