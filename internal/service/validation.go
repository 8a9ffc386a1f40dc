package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/health-risk-server/internal/domain"
)

const (
	msgRegionMissing = "Location data is missing"
	msgRegionFormat  = `Location must be in "City, State" format`

	minDiabetesAge = 18
	maxDiabetesAge = 120
)

var (
	usStates     = map[string]string{}
	usStateCodes = map[string]string{}
)

func init() {
	for code, name := range map[string]string{
		"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
		"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
		"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
		"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
		"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
		"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
		"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
		"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
		"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
		"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
		"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
		"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
		"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
	} {
		usStates[strings.ToLower(name)] = name
		usStateCodes[code] = name
	}

	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("region", validateRegion)
}

// requestValidate checks inbound submissions. "region" enforces the
// "City, State" region format.
var requestValidate *validator.Validate

// SubmitRequest is the inbound shape of a new assessment.
type SubmitRequest struct {
	UserID       string              `json:"userId" validate:"required,max=128"`
	DiseaseType  string              `json:"diseaseType" validate:"required"`
	Answers      map[string]any      `json:"answers"`
	Region       string              `json:"region" validate:"required,region"`
	Demographics domain.Demographics `json:"demographics"`
}

func validateRegion(fl validator.FieldLevel) bool {
	_, err := NormalizeRegion(fl.Field().String())
	return err == nil
}

// NormalizeRegion validates a "City, State" label and returns it with both
// parts trimmed. US states given by name or USPS code are spelled out in
// canonical casing; other states are kept as given.
func NormalizeRegion(region string) (string, error) {
	if strings.TrimSpace(region) == "" {
		return "", domain.NewValidationError("region", msgRegionMissing, region)
	}
	parts := strings.Split(region, ",")
	if len(parts) != 2 {
		return "", domain.NewValidationError("region", msgRegionFormat, region)
	}
	city := strings.TrimSpace(parts[0])
	state := strings.TrimSpace(parts[1])
	if city == "" || state == "" {
		return "", domain.NewValidationError("region", msgRegionFormat, region)
	}
	if name, ok := usStateCodes[strings.ToUpper(state)]; ok {
		state = name
	} else if name, ok := usStates[strings.ToLower(state)]; ok {
		state = name
	}
	return city + ", " + state, nil
}

// Validate checks the request shape and per-question bounds.
func (r *SubmitRequest) Validate() error {
	if err := requestValidate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0], r)
		}
		return domain.NewValidationError("request", err.Error(), nil)
	}

	disease, err := domain.ParseDiseaseType(r.DiseaseType)
	if err != nil {
		return domain.NewValidationError("diseaseType", "must be one of diabetes, kidneyDisease, heartDisease", r.DiseaseType)
	}

	if disease == domain.DiseaseDiabetes {
		// Decoding clamps negatives to zero, so the bound is checked on the raw value.
		if v, ok := r.Answers[domain.QuestionDiabetesAge]; ok {
			raw := v
			if s, isString := v.(string); isString {
				raw = strings.TrimSpace(s)
			}
			if age, err := cast.ToFloat64E(raw); err == nil && age != 0 && (age < minDiabetesAge || age > maxDiabetesAge) {
				return domain.NewValidationError(domain.QuestionDiabetesAge, "age must be between 18 and 120", v)
			}
		}
	}
	return nil
}

func fieldError(fe validator.FieldError, r *SubmitRequest) error {
	switch fe.StructField() {
	case "Region":
		if _, err := NormalizeRegion(r.Region); err != nil {
			return err
		}
		return domain.NewValidationError("region", msgRegionFormat, r.Region)
	case "UserID":
		return domain.NewValidationError("userId", "user id is required and must be at most 128 characters", r.UserID)
	case "DiseaseType":
		return domain.NewValidationError("diseaseType", "disease type is required", r.DiseaseType)
	default:
		return domain.NewValidationError(fe.Field(), fe.Tag(), fe.Value())
	}
}
