package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SubmissionInput is a normalized form post. Numeric fields stay textual
// until they pass validation.
type SubmissionInput struct {
	ShortAnswer  string   `form:"shortAnswer" validate:"required,min=3,max=500"`
	LongAnswer   string   `form:"longAnswer" validate:"required,min=10,max=5000"`
	MultiSelect  []string `form:"multiSelect" validate:"max=50,dive,max=500"`
	SingleSelect string   `form:"singleSelect" validate:"max=500"`
	Date         string   `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Time         string   `form:"time" validate:"omitempty,clock"`
	Phone        string   `form:"phone" validate:"omitempty,max=30,phone"`
	Email        string   `form:"email" validate:"omitempty,max=254,email"`
	Number       string   `form:"number" validate:"omitempty,intrange=0:"`
	Website      string   `form:"website" validate:"omitempty,max=2048,http_url"`
	Scale        string   `form:"scale" validate:"omitempty,intrange=1:10"`
	Dropdown     string   `form:"dropdown" validate:"max=500"`
}

var messages = map[string]string{
	"shortAnswer":  "Short answer must be between 3 and 500 characters",
	"longAnswer":   "Long answer must be between 10 and 5000 characters",
	"multiSelect":  "Invalid selection",
	"singleSelect": "Invalid selection",
	"date":         "Invalid date format",
	"time":         "Invalid time format",
	"phone":        "Invalid phone number",
	"email":        "Invalid email address",
	"number":       "Number must be a non-negative integer",
	"website":      "Invalid website URL",
	"scale":        "Scale must be between 1 and 10",
	"dropdown":     "Invalid selection",
}

var (
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]+$`)
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "intrange", validateIntRange)

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	err := v.RegisterValidation(tag, fn)
	if err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// validateIntRange checks a decimal integer against "min:max", either bound optional.
func validateIntRange(fl validator.FieldLevel) bool {
	n, err := strconv.ParseInt(fl.Field().String(), 10, 64)
	if err != nil {
		return false
	}

	lo, hi, _ := strings.Cut(fl.Param(), ":")
	if lo != "" {
		min, err := strconv.ParseInt(lo, 10, 64)
		if err != nil || n < min {
			return false
		}
	}
	if hi != "" {
		max, err := strconv.ParseInt(hi, 10, 64)
		if err != nil || n > max {
			return false
		}
	}
	return true
}

// ValidateSubmission checks a normalized form post and returns *Error
// listing every failing field.
func ValidateSubmission(in *SubmissionInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	verr := &Error{}
	for _, fe := range fieldErrs {
		field := fe.Field()
		// Element errors inside a slice come back as "multiSelect[2]"
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		msg, ok := messages[field]
		if !ok {
			msg = "Invalid value"
		}
		verr.Add(field, msg)
	}

	return verr.Err()
}
