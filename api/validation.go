package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"agora/core"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type questionRequest struct {
	Title       string   `json:"title" validate:"required,min=10,max=200"`
	Description string   `json:"description" validate:"required,min=20,max=10000"`
	Tags        []string `json:"tags" validate:"required,min=1,max=5,dive,required,max=20"`
}

// updateQuestionRequest fields left empty keep their current value
type updateQuestionRequest struct {
	Title       string   `json:"title" validate:"omitempty,min=10,max=200"`
	Description string   `json:"description" validate:"omitempty,min=20,max=10000"`
	Tags        []string `json:"tags" validate:"omitempty,max=5,dive,required,max=20"`
}

type answerRequest struct {
	Content string `json:"content" validate:"required,min=10,max=20000"`
}

type voteRequest struct {
	Type core.VoteType `json:"type" validate:"required,oneof=upvote downvote"`
}

type badgeRequest struct {
	Badge string `json:"badge" validate:"required,max=50"`
}

// validateRequest trims string fields and runs struct validation. Failures
// wrap core.ErrValidation with a field-level message.
func validateRequest(req interface{}) error {
	switch v := req.(type) {
	case *questionRequest:
		v.Title = strings.TrimSpace(v.Title)
		v.Description = strings.TrimSpace(v.Description)
		for i := range v.Tags {
			v.Tags[i] = strings.TrimSpace(v.Tags[i])
		}
	case *updateQuestionRequest:
		v.Title = strings.TrimSpace(v.Title)
		v.Description = strings.TrimSpace(v.Description)
		for i := range v.Tags {
			v.Tags[i] = strings.TrimSpace(v.Tags[i])
		}
	case *answerRequest:
		v.Content = strings.TrimSpace(v.Content)
	case *badgeRequest:
		v.Badge = strings.TrimSpace(v.Badge)
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", core.ErrValidation, strings.Join(messages, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, "[") {
		// element of a slice, e.g. questionRequest.tags[2]
		field = ns[strings.Index(ns, ".")+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
