package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	personName = regexp.MustCompile(`^[\p{L}\s]+$`)
	gradeValue = regexp.MustCompile(`^[0-5]$`)
	httpURL    = regexp.MustCompile(`^https?://[^\s/$.?#][^\s]*$`)
	dataImage  = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=\s]+$`)

	loginEmail   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	specialChars = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	upperCase    = regexp.MustCompile(`[A-Z]`)
	lowerCase    = regexp.MustCompile(`[a-z]`)
	digits       = regexp.MustCompile(`[0-9]`)
)

// Errors maps a field name to a human readable message. A record is valid iff
// the map is empty.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool {
	return len(e) == 0
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator checks records against their `validate` struct tags. Field names
// are reported by their json name.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the record rules registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "emailshape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personName.MatchString(fl.Field().String())
	})
	mustRegister(v, "grade", func(fl validator.FieldLevel) bool {
		return gradeValue.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "imageref", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return httpURL.MatchString(s) || dataImage.MatchString(s)
	})

	mustRegisterPattern(v, "loginemail", loginEmail)
	mustRegisterPattern(v, "specialchar", specialChars)
	mustRegisterPattern(v, "hasupper", upperCase)
	mustRegisterPattern(v, "haslower", lowerCase)
	mustRegisterPattern(v, "hasdigit", digits)

	return &Validator{validate: v}
}

func mustRegisterPattern(v *validator.Validate, tag string, re *regexp.Regexp) {
	mustRegister(v, tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates record. messages is keyed "field.tag=param", then
// "field.tag", with "field" as the fallback for any tag of that field.
func (v *Validator) Struct(record any, messages map[string]string) Errors {
	errs := Errors{}
	err := v.validate.Struct(record)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["_"] = err.Error()
		return errs
	}
	for _, e := range fieldErrs {
		errs[e.Field()] = message(messages, e)
	}
	return errs
}

func message(messages map[string]string, e validator.FieldError) string {
	field, tag := e.Field(), e.Tag()
	if e.Param() != "" {
		if m, ok := messages[field+"."+tag+"="+e.Param()]; ok {
			return m
		}
	}
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	if m, ok := messages[field]; ok {
		return m
	}
	return fmt.Sprintf("Campo '%s' inválido (%s)", field, tag)
}
