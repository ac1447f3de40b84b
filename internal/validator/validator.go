package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation with the custom rules of the
// diagnostic domain.
type Validator struct {
	structValidator *validator.Validate
}

// New creates the shared validator instance with all custom rules
// registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// Validate validates struct tags, custom rules included.
func (v *Validator) Validate(s interface{}) error {
	return v.structValidator.Struct(s)
}

// assessmentCodePattern accepts a leading D<n> token with an optional
// suffix, e.g. "D1" or "D1-7".
var assessmentCodePattern = regexp.MustCompile(`^D[0-9]+(-[0-9A-Za-z]+)?$`)

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("response_status", validateResponseStatus)
	validate.RegisterValidation("error_type", validateErrorType)
	validate.RegisterValidation("performance_tier", validatePerformanceTier)
	validate.RegisterValidation("assessment_code", validateAssessmentCode)

	// Report json field names in error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateResponseStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.ResponseStatus{
		models.StatusCorrect,
		models.StatusPartial,
		models.StatusIncorrect,
		models.StatusBlank,
		models.StatusAbsent,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validateErrorType(fl validator.FieldLevel) bool {
	validTypes := []models.ErrorType{
		models.ErrorReading,
		models.ErrorCalculation,
		models.ErrorConcept,
		models.ErrorStrategy,
		models.ErrorLeftBlank,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validatePerformanceTier(fl validator.FieldLevel) bool {
	validTiers := []models.PerformanceTier{
		models.TierA,
		models.TierB,
		models.TierC,
		models.TierAbsent,
		models.TierUnrated,
	}

	value := fl.Field().String()
	for _, validTier := range validTiers {
		if string(validTier) == value {
			return true
		}
	}
	return false
}

func validateAssessmentCode(fl validator.FieldLevel) bool {
	return assessmentCodePattern.MatchString(fl.Field().String())
}
