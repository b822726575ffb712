package model

// RiskVerdict is the derived risk of one category.
type RiskVerdict struct {
	IsRisk  bool     `json:"isRisk" bson:"isRisk"`
	Reasons []string `json:"reasons" bson:"reasons"`
}

// Overall summarizes the gating stage.
type Overall struct {
	Count      int  `json:"count" bson:"count"`
	IsHighRisk bool `json:"isHighRisk" bson:"isHighRisk"`
}

// RiskResult is the output of risk derivation. PerCategory only holds
// categories that were active for the detail stage.
type RiskResult struct {
	Overall        Overall                  `json:"overall"`
	PerCategory    map[Category]RiskVerdict `json:"perCategory"`
	RiskCategories []Category               `json:"riskCategories"`
}
