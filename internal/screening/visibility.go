package screening

import (
	"sort"

	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
)

// gatingIndex maps each category to the gating questions (1-based) that open it.
var gatingIndex = map[model.Category][]int{
	model.CategoryFinance:          {1, 7},
	model.CategorySocialIsolation:  {2},
	model.CategoryMentalHealth:     {3},
	model.CategoryHousing:          {4},
	model.CategoryFood:             {5},
	model.CategoryTransportation:   {6},
	model.CategoryHealthLiteracy:   {8},
	model.CategoryViolence:         {9},
	model.CategoryEmployment:       {10},
	model.CategorySocialSupport:    {11},
	model.CategoryCaregivingBurden: {12},
}

// ResolveVisibility returns, for every category, whether its detail questions are shown.
func ResolveVisibility(gating model.GatingAnswerSet) map[model.Category]bool {
	show := make(map[model.Category]bool, len(model.Categories))
	for _, c := range model.Categories {
		show[c] = false
		for _, n := range gatingIndex[c] {
			if gating.Yes(n) {
				show[c] = true
				break
			}
		}
	}
	return show
}

// ActiveCategories returns the shown categories in catalog order.
func ActiveCategories(show map[model.Category]bool) []model.Category {
	var out []model.Category
	for _, c := range model.Categories {
		if show[c] {
			out = append(out, c)
		}
	}
	return out
}

// VisibleQuestions filters the catalog by category visibility and sorts by
// order. Questions without a category are always included; ties keep
// declaration order.
func VisibleQuestions(c *catalog.Catalog, show map[model.Category]bool) []model.Question {
	var out []model.Question
	for _, q := range c.Questions() {
		if q.Category == "" || show[q.Category] {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}
