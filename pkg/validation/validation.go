package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Application and database names: lowercase alphanumerics, dots and hyphens, 1-253 chars
	resourceNameRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]{0,251}[a-z0-9])?$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateResourceName checks if an application or database name is valid
func ValidateResourceName(name string) error {
	if SanitizeString(name) != name {
		return fmt.Errorf("%w: name %q contains whitespace or control characters", ErrInvalidInput, name)
	}

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}

	if !resourceNameRegex.MatchString(name) {
		return fmt.Errorf("%w: name %q must be lowercase alphanumerics, dots and hyphens", ErrInvalidInput, name)
	}

	return nil
}

// ValidateOperateDay checks the operate_day value of a managed resource
func ValidateOperateDay(day models.OperateDay) error {
	switch day {
	case models.OperateWeekdays, models.OperateWeekend:
		return nil
	}
	return fmt.Errorf("%w: operate_day %q must be one of [%s %s]",
		ErrInvalidInput, day, models.OperateWeekdays, models.OperateWeekend)
}

// New returns a validator with the fleet schema rules registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("resourcename", func(fl validator.FieldLevel) bool {
		return ValidateResourceName(fl.Field().String()) == nil
	})

	v.RegisterValidation("operateday", func(fl validator.FieldLevel) bool {
		return ValidateOperateDay(models.OperateDay(fl.Field().String())) == nil
	})

	// Calendar-gated resources need to know which part of the week they run in.
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(models.ManagedResource)
		if r.AutoScaleDown && r.OperateDay == "" {
			sl.ReportError(r.OperateDay, "operate_day", "OperateDay", "required_with_autoscaledown", "")
		}
	}, models.ManagedResource{})

	return v
}

// ValidateResources validates each record and returns every problem found.
func ValidateResources(v *validator.Validate, section string, resources []models.ManagedResource) []error {
	var errs []error
	seen := make(map[string]bool, len(resources))

	for i, r := range resources {
		if err := v.Struct(r); err != nil {
			errs = append(errs, describe(fmt.Sprintf("%s[%d]", section, i), err)...)
		}
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("%s[%d]: duplicate name %q", section, i, r.Name))
		}
		seen[r.Name] = true
	}

	return errs
}

func describe(prefix string, err error) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{fmt.Errorf("%s: %w", prefix, err)}
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Errorf("%s.%s is required", prefix, fe.Field()))
		case "required_with_autoscaledown":
			out = append(out, fmt.Errorf("%s.operate_day is required when autoscaledown is true", prefix))
		case "operateday":
			out = append(out, fmt.Errorf("%s.operate_day %q must be one of [weekdays weekend]", prefix, fe.Value()))
		case "resourcename":
			out = append(out, fmt.Errorf("%s.%s %q is not a valid name", prefix, fe.Field(), fe.Value()))
		default:
			out = append(out, fmt.Errorf("%s.%s failed %s validation", prefix, fe.Field(), fe.Tag()))
		}
	}
	return out
}
