package httpx

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report json/form names rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	if err := validate.RegisterValidation("url_or_path", urlOrPath); err != nil {
		panic(err)
	}
}

// urlOrPath accepts absolute http(s) URLs and site-relative paths such as
// "/static/img/cover.jpg". Protocol-relative "//host" is not a path.
func urlOrPath(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.HasPrefix(s, "/") {
		if strings.HasPrefix(s, "//") || strings.ContainsAny(s, " \\") {
			return false
		}
		_, err := url.ParseRequestURI(s)
		return err == nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func ValidateStruct(s interface{}) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []ErrorDetail{{Field: "", Message: err.Error()}}
	}

	var details []ErrorDetail
	for _, fe := range validationErrors {
		field := fe.Field()
		param := fe.Param()

		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "eqfield":
			message = fmt.Sprintf("%s does not match", field)
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", field)
		case "url_or_path":
			message = fmt.Sprintf("%s must be a URL or a path starting with /", field)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, param)
		case "gte", "lte":
			message = fmt.Sprintf("%s is out of range (%s %s)", field, fe.Tag(), param)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		details = append(details, ErrorDetail{
			Field:   field,
			Message: message,
		})
	}

	return details
}

// FieldErrors indexes validation details by field for inline rendering.
func FieldErrors(details []ErrorDetail) map[string]string {
	out := make(map[string]string, len(details))
	for _, d := range details {
		if _, seen := out[d.Field]; !seen {
			out[d.Field] = d.Message
		}
	}
	return out
}
