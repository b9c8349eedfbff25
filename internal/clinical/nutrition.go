package clinical

// RiskSnapshot is the part of a risk result the nutrition advisor reads.
type RiskSnapshot struct {
	DiseaseType  DiseaseType  `json:"disease_type" binding:"required"`
	RiskCategory RiskCategory `json:"risk_category" binding:"required,oneof=low moderate high"`
}

type Meal struct {
	OptionA string  `json:"option_a"`
	OptionB string  `json:"option_b"`
	Notes   *string `json:"notes"`
}

type MealPlan struct {
	Breakfast Meal     `json:"breakfast"`
	Lunch     Meal     `json:"lunch"`
	Dinner    Meal     `json:"dinner"`
	Snacks    []string `json:"snacks"`
}

type DietRecommendations struct {
	GeneralGuidelines []string `json:"general_guidelines"`
	MealPlan          MealPlan `json:"meal_plan"`
	FoodsToIncrease   []string `json:"foods_to_increase"`
	FoodsToLimit      []string `json:"foods_to_limit"`
}

type LifestyleRecommendations struct {
	Exercise         []string `json:"exercise"`
	Sleep            []string `json:"sleep"`
	StressManagement []string `json:"stress_management"`
	HabitsToAvoid    []string `json:"habits_to_avoid"`
}

type NutritionPlan struct {
	RiskContext map[DiseaseType]RiskCategory `json:"risk_context"`
	Diet        DietRecommendations          `json:"diet_recommendations"`
	Lifestyle   LifestyleRecommendations     `json:"lifestyle_recommendations"`
}

const defaultExercise = "Aim for at least 150 minutes of moderate physical activity per week."

type riskAdvice struct {
	increase []string
	limit    []string
	exercise string
	avoid    string
}

var diseaseAdvice = []struct {
	disease DiseaseType
	advice  riskAdvice
}{
	{Diabetes, riskAdvice{
		increase: []string{
			"High-fiber foods (oats, lentils, beans)",
			"Leafy green vegetables (spinach, kale)",
			"Berries and low-glycemic fruits",
			"Nuts and seeds (almonds, chia seeds)",
		},
		limit: []string{
			"Refined carbohydrates (white bread, pastries)",
			"Sugary beverages and fruit juices",
			"Processed snacks and sweets",
		},
		exercise: "150 minutes/week of moderate aerobic exercise (brisk walking, cycling).",
		avoid:    "Avoid prolonged sitting. Stand or walk every 30 minutes.",
	}},
	{HeartDisease, riskAdvice{
		increase: []string{
			"Omega-3 fatty acids (salmon, sardines, flaxseed)",
			"Olive oil and healthy fats",
			"Whole grains",
			"Potassium-rich foods (bananas, sweet potatoes)",
		},
		limit: []string{
			"Saturated and trans fats",
			"High-sodium foods",
			"Red and processed meats",
			"Excess alcohol",
		},
		exercise: "Aim for 30 minutes of cardiovascular exercise 5 days a week.",
		avoid:    "Quit smoking if applicable. It is the #1 modifiable heart disease risk factor.",
	}},
}

// PlanNutrition derives diet and lifestyle advice from risk results. When a
// disease appears more than once the last entry wins.
func PlanNutrition(risks []RiskSnapshot) NutritionPlan {
	riskContext := make(map[DiseaseType]RiskCategory, len(risks))
	for _, r := range risks {
		riskContext[r.DiseaseType] = r.RiskCategory
	}

	diet := DietRecommendations{
		GeneralGuidelines: []string{
			"Eat a balanced diet rich in fruits, vegetables, whole grains, and lean proteins.",
			"Limit processed foods, added sugars, and excessive sodium.",
			"Stay hydrated: aim for 8+ glasses of water daily.",
			"Eat regular, moderate-sized meals to maintain stable blood sugar.",
		},
		MealPlan:        buildMealPlan(riskContext),
		FoodsToIncrease: []string{},
		FoodsToLimit:    []string{},
	}
	lifestyle := LifestyleRecommendations{
		Exercise: []string{},
		Sleep: []string{
			"Aim for 7-9 hours of quality sleep every night.",
			"Maintain a consistent sleep schedule.",
		},
		StressManagement: []string{
			"Practice mindfulness or meditation for 10-15 minutes daily.",
			"Take regular breaks during work hours.",
		},
		HabitsToAvoid: []string{},
	}

	for _, d := range diseaseAdvice {
		if !riskContext[d.disease].elevated() {
			continue
		}
		diet.FoodsToIncrease = append(diet.FoodsToIncrease, d.advice.increase...)
		diet.FoodsToLimit = append(diet.FoodsToLimit, d.advice.limit...)
		lifestyle.Exercise = append(lifestyle.Exercise, d.advice.exercise)
		lifestyle.HabitsToAvoid = append(lifestyle.HabitsToAvoid, d.advice.avoid)
	}

	diet.FoodsToIncrease = dedupe(diet.FoodsToIncrease)
	diet.FoodsToLimit = dedupe(diet.FoodsToLimit)
	lifestyle.Exercise = dedupe(lifestyle.Exercise)
	lifestyle.HabitsToAvoid = dedupe(lifestyle.HabitsToAvoid)

	if len(lifestyle.Exercise) == 0 {
		lifestyle.Exercise = append(lifestyle.Exercise, defaultExercise)
	}

	return NutritionPlan{RiskContext: riskContext, Diet: diet, Lifestyle: lifestyle}
}

func buildMealPlan(riskContext map[DiseaseType]RiskCategory) MealPlan {
	highRisk := false
	for _, c := range riskContext {
		if c == RiskHigh {
			highRisk = true
			break
		}
	}
	note := func(s string) *string {
		if !highRisk {
			return nil
		}
		return &s
	}

	return MealPlan{
		Breakfast: Meal{
			OptionA: "Oatmeal with berries, chia seeds, and a handful of almonds",
			OptionB: "Greek yogurt with fresh fruit and granola",
			Notes:   note("Avoid sugary cereals"),
		},
		Lunch: Meal{
			OptionA: "Grilled chicken salad with mixed greens, olive oil dressing",
			OptionB: "Lentil soup with whole-grain bread",
			Notes:   note("Watch portion sizes of carbohydrates"),
		},
		Dinner: Meal{
			OptionA: "Baked salmon with steamed broccoli and quinoa",
			OptionB: "Stir-fried tofu with vegetables and brown rice",
			Notes:   note("Keep dinner light. Eat at least 2-3 hours before bed"),
		},
		Snacks: []string{
			"Apple slices with peanut butter",
			"Mixed nuts (unsalted)",
			"Carrot sticks with hummus",
		},
	}
}

// dedupe keeps the first occurrence of each item.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
