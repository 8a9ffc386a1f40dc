package service

import (
	"github.com/health-risk-server/internal/domain"
)

// RuleContribution records the points one scoring rule added.
type RuleContribution struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// scoringRule is one additive line of a disease rule table. Points never
// returns a negative value.
type scoringRule struct {
	Code        string
	Description string
	Points      func(a domain.Answers) int
}

var scoringRules = map[domain.DiseaseType][]scoringRule{
	domain.DiseaseDiabetes: {
		{"DM_AGE", "Age band", func(a domain.Answers) int {
			switch age := a.Diabetes.Age; {
			case age > 45:
				return 30
			case age > 35:
				return 20
			default:
				return 10
			}
		}},
		{"DM_FAMILY", "Family history of diabetes", func(a domain.Answers) int {
			return points(a.Diabetes.FamilyHistory == domain.AnswerYes, 25)
		}},
		{"DM_BMI", "Body mass index", func(a domain.Answers) int {
			bmi, ok := a.Diabetes.BMI()
			switch {
			case !ok:
				return 0
			case bmi > 30:
				return 25
			case bmi > 25:
				return 15
			default:
				return 0
			}
		}},
		{"DM_DIET", "Diet quality", func(a domain.Answers) int {
			switch a.Diabetes.DietQuality {
			case domain.DietUnhealthy:
				return 20
			case domain.DietModerate:
				return 10
			default:
				return 0
			}
		}},
	},
	domain.DiseaseKidney: {
		{"KD_HYPERTENSION", "High blood pressure", func(a domain.Answers) int {
			return points(a.Kidney.Hypertension == domain.AnswerYes, 30)
		}},
		{"KD_DIABETES", "Diabetes present", func(a domain.Answers) int {
			return points(a.Kidney.DiabetesPresent == domain.AnswerYes, 30)
		}},
		{"KD_FAMILY", "Family history of kidney disease", func(a domain.Answers) int {
			return points(a.Kidney.FamilyHistory == domain.AnswerYes, 20)
		}},
		{"KD_WATER", "Low daily water intake", func(a domain.Answers) int {
			return points(a.Kidney.WaterIntakeBand == domain.WaterLessThan4, 10)
		}},
		{"KD_NSAID", "Regular NSAID use", func(a domain.Answers) int {
			return points(a.Kidney.NSAIDUse == domain.AnswerYes, 10)
		}},
	},
	domain.DiseaseHeart: {
		{"HD_HYPERTENSION", "High blood pressure", func(a domain.Answers) int {
			return points(a.Heart.Hypertension == domain.AnswerYes, 25)
		}},
		{"HD_CHOLESTEROL", "High cholesterol", func(a domain.Answers) int {
			return points(a.Heart.HighCholesterol == domain.AnswerYes, 25)
		}},
		{"HD_FAMILY", "Family history of heart disease", func(a domain.Answers) int {
			return points(a.Heart.FamilyHistory == domain.AnswerYes, 20)
		}},
		{"HD_ACTIVITY", "Physical activity level", func(a domain.Answers) int {
			switch a.Heart.ActivityLevel {
			case domain.ActivitySedentary:
				return 20
			case domain.ActivityLight:
				return 10
			default:
				return 0
			}
		}},
		{"HD_STRESS", "Stress level", func(a domain.Answers) int {
			switch a.Heart.StressLevel {
			case domain.StressHigh:
				return 10
			case domain.StressModerate:
				return 5
			default:
				return 0
			}
		}},
	},
}

// Score computes the additive risk score and level for a questionnaire.
// It never fails: answers without a matching variant score zero.
func Score(a domain.Answers) domain.RiskResult {
	total := 0
	for _, c := range Explain(a) {
		total += c.Points
	}
	return domain.RiskResult{Score: total, Level: domain.ClassifyScore(total)}
}

// Explain lists every rule of the disease table with the points it added.
func Explain(a domain.Answers) []RuleContribution {
	if !hasVariant(a) {
		return nil
	}
	rules := scoringRules[a.Disease]
	out := make([]RuleContribution, 0, len(rules))
	for _, r := range rules {
		out = append(out, RuleContribution{Code: r.Code, Description: r.Description, Points: r.Points(a)})
	}
	return out
}

// ScoreRaw decodes an untyped answer map for disease and scores it.
func ScoreRaw(disease domain.DiseaseType, raw map[string]any) (domain.RiskResult, error) {
	a, err := domain.DecodeAnswers(disease, raw)
	if err != nil {
		return domain.RiskResult{}, err
	}
	return Score(a), nil
}

func hasVariant(a domain.Answers) bool {
	switch a.Disease {
	case domain.DiseaseDiabetes:
		return a.Diabetes != nil
	case domain.DiseaseKidney:
		return a.Kidney != nil
	case domain.DiseaseHeart:
		return a.Heart != nil
	default:
		return false
	}
}

func points(cond bool, n int) int {
	if cond {
		return n
	}
	return 0
}
