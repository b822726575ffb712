package screening

import (
	"strconv"

	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
)

type riskRule struct {
	reason string
	match  func(a model.AnswerSet) bool
}

// DistressThreshold is the lowest distress score that counts as a risk.
const DistressThreshold = 6

var riskRules = map[model.Category][]riskRule{
	model.CategoryFinance: {
		{"중위소득 75% 미만", oneOf(catalog.IDIncome, "lt40", "lt50", "lt75")},
		{"경제적 어려움으로 인한 지불 곤란", selectedExceptNone(catalog.IDPaymentDifficulty)},
	},
	model.CategorySocialIsolation: {
		{"외로움을 자주 느낌", oneOf(catalog.IDLoneliness, "often", "always")},
		{"사회적 교류 월 1회 미만", oneOf(catalog.IDSocialContact, "lessThanMonthly")},
	},
	model.CategoryMentalHealth: {
		{"디스트레스 점수 6점 이상", atLeast(catalog.IDDistress, DistressThreshold)},
	},
	model.CategoryHousing: {
		{"불안정한 주거 형태", oneOf(catalog.IDLiving, "withRelativesTemp", "shelter", "careFacility")},
		{"주거 관련 걱정 있음", oneOf(catalog.IDHousingConcern, model.YesNoYes)},
	},
	model.CategoryFood: {
		{"식품 접근성 부족", oneOf(catalog.IDFoodAccess, model.YesNoNo)},
	},
	model.CategoryTransportation: {
		{"교통 이용의 어려움", selectedExceptNone(catalog.IDTransportBarrier)},
	},
	model.CategoryHealthLiteracy: {
		{"낮은 교육 수준", oneOf(catalog.IDEducation, "none", "elementary", "middle")},
		{"읽기 도움 필요", oneOf(catalog.IDReadingHelp, "2", "3", "4")},
		{"디지털 활용 능력 제한", oneOf(catalog.IDDigitalLiteracy, "limited")},
	},
	model.CategoryViolence: {
		{"신체적 폭력 경험", answeredOtherThan(catalog.IDPhysicalViolence, catalog.ViolenceNever)},
		{"언어적 폭력 경험", answeredOtherThan(catalog.IDVerbalViolence, catalog.ViolenceNever)},
		{"위협 경험", answeredOtherThan(catalog.IDThreat, catalog.ViolenceNever)},
	},
	model.CategoryEmployment: {
		{"치료로 인한 고용 불안정", both(
			oneOf(catalog.IDEmployment, catalog.EmploymentWorking),
			oneOf(catalog.IDWorkingStatus, "on_leave", "job_change", "planned_resignation"),
		)},
		{"진단 후 퇴직 또는 기타 사유로 미취업", both(
			oneOf(catalog.IDEmployment, catalog.EmploymentNotWorking),
			oneOf(catalog.IDNotWorkingReason, "quit_after_dx", model.OptionOther),
		)},
	},
	model.CategorySocialSupport: {
		{"응급 시 연락할 사람 없음", oneOf(catalog.IDNoOneToCall, model.YesNoYes)},
		{"일상생활 도움을 받을 사람 없음", oneOf(catalog.IDNoOneToAssist, model.YesNoYes)},
	},
	model.CategoryCaregivingBurden: {
		{"돌봄 부담 있음", oneOf(catalog.IDCaregiver, model.YesNoYes)},
	},
}

func oneOf(id string, values ...string) func(model.AnswerSet) bool {
	return func(a model.AnswerSet) bool {
		v := a.Get(id)
		if v.Kind() != model.KindText {
			return false
		}
		for _, want := range values {
			if v.Str() == want {
				return true
			}
		}
		return false
	}
}

func answeredOtherThan(id, safe string) func(model.AnswerSet) bool {
	return func(a model.AnswerSet) bool {
		v := a.Get(id)
		return !v.IsEmpty() && v.Kind() == model.KindText && v.Str() != safe
	}
}

func selectedExceptNone(id string) func(model.AnswerSet) bool {
	return func(a model.AnswerSet) bool {
		for _, item := range a.Get(id).Items() {
			if item != model.OptionNone {
				return true
			}
		}
		return false
	}
}

func atLeast(id string, min int) func(model.AnswerSet) bool {
	return func(a model.AnswerSet) bool {
		n, err := strconv.Atoi(a.Get(id).Str())
		return err == nil && n >= min
	}
}

func both(x, y func(model.AnswerSet) bool) func(model.AnswerSet) bool {
	return func(a model.AnswerSet) bool {
		return x(a) && y(a)
	}
}

// DeriveRisk scores a screening. Only categories opened by the gating answers
// are evaluated; unset answers never contribute.
func DeriveRisk(gating model.GatingAnswerSet, answers model.AnswerSet) model.RiskResult {
	count := gating.YesCount()
	result := model.RiskResult{
		Overall: model.Overall{
			Count:      count,
			IsHighRisk: count >= model.HighRiskThreshold,
		},
		PerCategory:    make(map[model.Category]model.RiskVerdict),
		RiskCategories: []model.Category{},
	}

	show := ResolveVisibility(gating)
	for _, c := range model.Categories {
		if !show[c] {
			continue
		}
		verdict := model.RiskVerdict{Reasons: []string{}}
		for _, rule := range riskRules[c] {
			if rule.match(answers) {
				verdict.Reasons = append(verdict.Reasons, rule.reason)
			}
		}
		verdict.IsRisk = len(verdict.Reasons) > 0
		result.PerCategory[c] = verdict
		if verdict.IsRisk {
			result.RiskCategories = append(result.RiskCategories, c)
		}
	}
	return result
}
