package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reputalia/creditos/internal/models"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("segment", validateSegment)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// Customer segment as the catalog knows it
func validateSegment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case models.SegmentIndividual, models.SegmentAgency:
		return true
	default:
		return false
	}
}
