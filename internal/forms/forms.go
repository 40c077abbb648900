// Package forms validates submitted form structs and reports every failing
// field at once.
package forms

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Errors maps a form field name to its message.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Fields returns the failing field names in order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

var (
	emailPattern    = regexp.MustCompile(`\S+@\S+\.\S+`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10,11}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "basicemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(stripSpace(fl.Field().String()))
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "usdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("01/02/2006", fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Validate checks v against its validate tags. It returns nil when v is valid.
func Validate(v any) Errors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		return Errors{"form": err.Error()}
	}

	out := Errors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "basicemail":
		return "Email is not valid"
	case "phone":
		return "Phone number must have 10 or 11 digits"
	case "username":
		return "Only letters, digits and underscores are allowed"
	case "usdate":
		return "Date must be MM/DD/YYYY"
	case "oneof":
		return "Choose one of the listed options"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "eqfield":
		return "Does not match"
	default:
		return "Invalid value"
	}
}

// Trim trims surrounding space from every string field of the struct ptr points to.
func Trim(ptr any) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// Decode copies values into the string fields of the struct ptr points to,
// matching on the form tag.
func Decode(values url.Values, ptr any) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(values.Get(name))
		}
	}
}
