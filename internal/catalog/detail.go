package catalog

import "socialrisk/internal/model"

// Detail question and field ids referenced outside the catalog.
const (
	IDIncome            = "q1"
	IDHousehold         = "q1Household"
	IDPaymentDifficulty = "q2"
	IDLoneliness        = "q3"
	IDSocialContact     = "q4"
	IDDistress          = "q5"
	IDLiving            = "q6"
	IDHousingConcern    = "q6_concern"
	IDFoodAccess        = "q7_food"
	IDTransportMode     = "q8_mode"
	IDTransportBarrier  = "q8"
	IDEducation         = "q9"
	IDReadingHelp       = "q10"
	IDDigitalLiteracy   = "q11"
	IDPhysicalViolence  = "q12"
	IDVerbalViolence    = "q13"
	IDThreat            = "q14"
	IDEmployment        = "q15"
	IDWorkingStatus     = "q15_working_status"
	IDNotWorkingReason  = "q15_notWorking_reasons"
	IDNoOneToCall       = "q16"
	IDNoOneToAssist     = "q17"
	IDCaregiver         = "q18"
	IDContactPreference = "q19"
	IDDesiredServices   = "q20"
)

// Option values referenced by risk rules.
const (
	EmploymentWorking    = "working"
	EmploymentNotWorking = "notWorking"
	ViolenceNever        = "없다"
)

func opts(pairs ...string) []model.Option {
	out := make([]model.Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.Option{Value: pairs[i], Label: pairs[i+1]})
	}
	return out
}

var violenceOptions = opts(ViolenceNever, "없다", "가끔", "가끔", "자주", "자주")

var detail = New([]model.Question{
	{
		ID: IDIncome, Order: 1, Category: model.CategoryFinance, Required: true,
		Label: "가구의 월평균 소득은 어느 정도입니까?",
		Shape: model.IncomeCombo{
			HouseholdID: IDHousehold,
			Options: opts(
				"lt40", "중위소득 40% 미만",
				"lt50", "중위소득 40~50%",
				"lt75", "중위소득 50~75%",
				"lt100", "중위소득 75~100%",
				"gte100", "중위소득 100% 이상",
				"unknown", "잘 모르겠음",
			),
		},
	},
	{
		ID: IDPaymentDifficulty, Order: 2, Category: model.CategoryFinance, Required: true,
		Label: "지난 1년간 경제적 어려움으로 지불하지 못한 항목을 모두 선택해 주세요.",
		Shape: model.Checkbox{
			OtherKey: "q2Other",
			Options: opts(
				"rent", "월세 또는 주거비",
				"utilities", "공과금",
				"medical", "의료비",
				"food", "식비",
				"loan", "대출 상환",
				model.OptionOther, "기타",
				model.OptionNone, "해당 없음",
			),
		},
	},
	{
		ID: IDLoneliness, Order: 3, Category: model.CategorySocialIsolation, Required: true,
		Label: "얼마나 자주 외로움을 느끼십니까?",
		Shape: model.Radio{Options: opts(
			"never", "전혀 없음",
			"rarely", "거의 없음",
			"sometimes", "가끔",
			"often", "자주",
			"always", "항상",
		)},
	},
	{
		ID: IDSocialContact, Order: 4, Category: model.CategorySocialIsolation, Required: true,
		Label: "가족, 친구, 이웃과 얼마나 자주 만나거나 연락하십니까?",
		Shape: model.Radio{Options: opts(
			"daily", "매일",
			"weekly", "주 1회 이상",
			"monthly", "월 1회 이상",
			"lessThanMonthly", "월 1회 미만",
		)},
	},
	{
		ID: IDDistress, Order: 5, Category: model.CategoryMentalHealth, Required: true,
		Label: "지난 일주일 동안 경험한 디스트레스 정도를 선택해 주세요.",
		Shape: model.Slider{Min: 1, Max: 10, Step: 1, MinLabel: "전혀 없음", MaxLabel: "극심함"},
	},
	{
		ID: IDLiving, Order: 6, Category: model.CategoryHousing, Required: true,
		Label: "현재 거주 형태는 무엇입니까?",
		Shape: model.Radio{
			OtherKey: "q6Other",
			Options: opts(
				"own", "자가",
				"rent", "전세 또는 월세",
				"withRelativesTemp", "친척 집에 임시 거주",
				"shelter", "쉼터",
				"careFacility", "요양 시설",
				model.OptionOther, "기타",
			),
		},
	},
	{
		ID: IDHousingConcern, Order: 6.5, Category: model.CategoryHousing, Required: true,
		Label: "앞으로 거주지를 잃거나 옮겨야 할 걱정이 있습니까?",
		Shape: model.YesNoDetails{
			Trigger: model.YesNoYes,
			Detail: &model.SubQuestion{
				ID: "q6_concernDetails", Type: model.TypeText,
				Label: "어떤 걱정이 있는지 적어 주세요.",
			},
		},
	},
	{
		ID: IDFoodAccess, Order: 7, Category: model.CategoryFood, Required: true,
		Label: "필요한 만큼 충분한 음식을 구할 수 있습니까?",
		Shape: model.YesNoDetails{
			Trigger: model.YesNoNo,
			Detail: &model.SubQuestion{
				ID: "q7_foodDetails", Type: model.TypeCheckbox, Required: true,
				Label: "어려운 이유를 모두 선택해 주세요.",
				Options: opts(
					"cost", "식비 부담",
					"access", "장보기 어려움",
					"cooking", "조리 어려움",
					"appetite", "식욕 저하",
				),
			},
		},
	},
	{
		ID: IDTransportMode, Order: 7.5, Category: model.CategoryTransportation, Required: true,
		Label: "병원에 올 때 주로 이용하는 교통수단은 무엇입니까?",
		Shape: model.Radio{Options: opts(
			"ownCar", "자가용",
			"family", "가족의 차량",
			"public", "대중교통",
			"taxi", "택시",
			"walk", "도보",
		)},
	},
	{
		ID: IDTransportBarrier, Order: 8, Category: model.CategoryTransportation, Required: true,
		Label: "병원 이동 시 어려운 점을 모두 선택해 주세요.",
		Shape: model.Checkbox{Options: opts(
			"cost", "교통비 부담",
			"distance", "먼 거리",
			"noCar", "이용 가능한 차량 없음",
			"mobility", "거동 불편",
			"noCompanion", "동행인 없음",
			model.OptionNone, "해당 없음",
		)},
	},
	{
		ID: IDEducation, Order: 9, Category: model.CategoryHealthLiteracy, Required: true,
		Label: "최종 학력은 무엇입니까?",
		Shape: model.Radio{Options: opts(
			"none", "무학",
			"elementary", "초등학교",
			"middle", "중학교",
			"high", "고등학교",
			"college", "대학교",
			"graduate", "대학원 이상",
		)},
	},
	{
		ID: IDReadingHelp, Order: 10, Category: model.CategoryHealthLiteracy, Required: true,
		Label: "병원 안내문이나 약 설명서를 읽을 때 다른 사람의 도움이 얼마나 필요합니까?",
		Shape: model.Radio{Options: opts(
			"0", "전혀 필요 없음",
			"1", "거의 필요 없음",
			"2", "가끔 필요",
			"3", "자주 필요",
			"4", "항상 필요",
		)},
	},
	{
		ID: IDDigitalLiteracy, Order: 11, Category: model.CategoryHealthLiteracy, Required: true,
		Label: "스마트폰이나 인터넷으로 건강 정보를 찾을 수 있습니까?",
		Shape: model.Radio{Options: opts(
			"proficient", "능숙하게 사용",
			"basic", "기본적인 사용 가능",
			"limited", "사용 어려움",
		)},
	},
	{
		ID: IDPhysicalViolence, Order: 12, Category: model.CategoryViolence, Required: true,
		Label: "지난 1년간 누군가에게 신체적 폭력을 당한 적이 있습니까?",
		Shape: model.Radio{Options: violenceOptions},
	},
	{
		ID: IDVerbalViolence, Order: 13, Category: model.CategoryViolence, Required: true,
		Label: "지난 1년간 누군가에게 모욕이나 언어적 폭력을 당한 적이 있습니까?",
		Shape: model.Radio{Options: violenceOptions},
	},
	{
		ID: IDThreat, Order: 14, Category: model.CategoryViolence, Required: true,
		Label: "지난 1년간 누군가에게 위협을 받은 적이 있습니까?",
		Shape: model.Radio{Options: violenceOptions},
	},
	{
		ID: IDEmployment, Order: 15, Category: model.CategoryEmployment, Required: true,
		Label: "현재 일을 하고 계십니까?",
		Shape: model.RadioWithSub{Options: []model.Option{
			{
				Value: EmploymentWorking, Label: "일하고 있음",
				Sub: &model.SubQuestion{
					ID: IDWorkingStatus, Type: model.TypeRadio, Required: true,
					Label: "현재 근무 상태를 선택해 주세요.",
					Options: opts(
						"normal", "정상 근무",
						"on_leave", "휴직 중",
						"job_change", "직무 변경",
						"planned_resignation", "퇴직 예정",
					),
				},
			},
			{
				Value: EmploymentNotWorking, Label: "일하고 있지 않음",
				Sub: &model.SubQuestion{
					ID: IDNotWorkingReason, Type: model.TypeRadio, Required: true,
					Label:    "일하지 않는 이유를 선택해 주세요.",
					OtherKey: "q15_notWorking_reasonsOther",
					Options: opts(
						"retired", "정년 퇴직",
						"never_work", "일한 적 없음",
						"quit_after_dx", "진단 후 퇴직",
						"homemaker", "가사",
						model.OptionOther, "기타",
					),
				},
			},
		}},
	},
	{
		ID: IDNoOneToCall, Order: 16, Category: model.CategorySocialSupport, Required: true,
		Label: "응급 상황에서 연락할 사람이 없습니까?",
		Shape: model.Radio{Options: opts(model.YesNoYes, "예", model.YesNoNo, "아니오")},
	},
	{
		ID: IDNoOneToAssist, Order: 17, Category: model.CategorySocialSupport, Required: true,
		Label: "일상생활에서 도움을 받을 사람이 없습니까?",
		Shape: model.Radio{Options: opts(model.YesNoYes, "예", model.YesNoNo, "아니오")},
	},
	{
		ID: IDCaregiver, Order: 18, Category: model.CategoryCaregivingBurden, Required: true,
		Label: "본인이 돌봐야 하는 가족이 있습니까?",
		Shape: model.YesNoDetails{
			Detail: &model.SubQuestion{
				ID: "q18Details", Type: model.TypeCheckbox, Required: true,
				Label: "돌보는 대상을 모두 선택해 주세요.",
				Options: opts(
					"child", "자녀",
					"parent", "부모",
					"spouse", "배우자",
					"relative", "기타 가족",
				),
			},
		},
	},
	{
		ID: IDContactPreference, Order: 19, Required: true,
		Label: "상담이 필요할 때 선호하는 연락 방법은 무엇입니까?",
		Shape: model.Radio{Options: opts(
			"phone", "전화",
			"sms", "문자",
			"visit", "방문 상담",
			"noContact", "연락 원하지 않음",
		)},
	},
	{
		ID: IDDesiredServices, Order: 20,
		Label: "연계를 원하는 지원 서비스를 모두 선택해 주세요.",
		Shape: model.Checkbox{Options: opts(
			"financial", "의료비 지원",
			"counseling", "심리 상담",
			"housing", "주거 지원",
			"meal", "식사 지원",
			"transport", "이동 지원",
			"care", "돌봄 서비스",
			model.OptionNone, "필요 없음",
		)},
	},
})

// Detail returns the detail-stage catalog.
func Detail() *Catalog {
	return detail
}
