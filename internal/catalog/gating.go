package catalog

import "socialrisk/internal/model"

var gatingLabels = [model.GatingQuestionCount]string{
	"지난 1년간 경제적인 이유로 치료나 생활에 어려움을 겪은 적이 있습니까?",
	"가족이나 친구와 떨어져 외롭다고 느끼십니까?",
	"최근 2주간 우울하거나 불안한 감정을 자주 느끼셨습니까?",
	"현재 살고 있는 곳이 안정적이지 않거나 걱정이 있습니까?",
	"지난 1년간 식사를 충분히 하지 못한 적이 있습니까?",
	"병원에 오가는 교통편에 어려움이 있습니까?",
	"치료비 외 생활비 마련이 어렵습니까?",
	"건강 정보나 안내문을 이해하는 데 어려움이 있습니까?",
	"주변 사람에게 폭력이나 위협을 받은 적이 있습니까?",
	"암 진단 이후 일이나 직장에 변화가 있었습니까?",
	"도움이 필요할 때 의지할 사람이 없습니까?",
	"본인이 돌봐야 하는 가족이 있습니까?",
}

var gating = buildGating()

func buildGating() *Catalog {
	opts := []model.Option{
		{Value: model.GatingYes, Label: model.GatingYes},
		{Value: model.GatingNo, Label: model.GatingNo},
	}
	qs := make([]model.Question, 0, model.GatingQuestionCount)
	for i, label := range gatingLabels {
		qs = append(qs, model.Question{
			ID:       model.GatingKey(i + 1),
			Order:    float64(i + 1),
			Label:    label,
			Required: true,
			Shape:    model.Radio{Options: opts},
		})
	}
	return New(qs)
}

// Gating returns the 12-item yes/no gating catalog.
func Gating() *Catalog {
	return gating
}
