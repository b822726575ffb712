package model

// Category is one of the social-risk domains a detail question belongs to.
type Category string

const (
	CategoryFinance          Category = "finance"
	CategorySocialIsolation  Category = "socialIsolation"
	CategoryMentalHealth     Category = "mentalHealth"
	CategoryHousing          Category = "housing"
	CategoryFood             Category = "food"
	CategoryTransportation   Category = "transportation"
	CategoryHealthLiteracy   Category = "healthLiteracy"
	CategoryViolence         Category = "violence"
	CategoryEmployment       Category = "employment"
	CategorySocialSupport    Category = "socialSupport"
	CategoryCaregivingBurden Category = "caregivingBurden"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFinance,
	CategorySocialIsolation,
	CategoryMentalHealth,
	CategoryHousing,
	CategoryFood,
	CategoryTransportation,
	CategoryHealthLiteracy,
	CategoryViolence,
	CategoryEmployment,
	CategorySocialSupport,
	CategoryCaregivingBurden,
}

var categoryLabels = map[Category]string{
	CategoryFinance:          "경제적 어려움",
	CategorySocialIsolation:  "사회적 고립",
	CategoryMentalHealth:     "정신건강",
	CategoryHousing:          "주거",
	CategoryFood:             "식생활",
	CategoryTransportation:   "교통",
	CategoryHealthLiteracy:   "건강정보 이해능력",
	CategoryViolence:         "폭력",
	CategoryEmployment:       "고용",
	CategorySocialSupport:    "사회적 지지",
	CategoryCaregivingBurden: "돌봄 부담",
}

// Label returns the display name of the category.
func (c Category) Label() string {
	return categoryLabels[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}
