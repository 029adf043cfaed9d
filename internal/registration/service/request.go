package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ms-registration/internal/models"
)

// RegistrationRequest is the typed input of Register.
type RegistrationRequest struct {
	EventID             int64  `json:"event_id" validate:"gt=0"`
	FullName            string `json:"full_name" validate:"required,max=200"`
	Email               string `json:"email" validate:"required,email,max=254"`
	Phone               string `json:"phone" validate:"omitempty,max=32"`
	TicketCount         int    `json:"ticket_count" validate:"gte=1"`
	SpecialRequirements string `json:"special_requirements" validate:"omitempty,max=2000"`
}

// normalize trims every text field and lower-cases the email, which is the
// identity the uniqueness rule is checked against.
func (r RegistrationRequest) normalize() RegistrationRequest {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.SpecialRequirements = strings.TrimSpace(r.SpecialRequirements)
	return r
}

func (r RegistrationRequest) toModel() *models.Registration {
	return &models.Registration{
		EventID:             r.EventID,
		FullName:            r.FullName,
		Email:               r.Email,
		Phone:               r.Phone,
		TicketCount:         r.TicketCount,
		SpecialRequirements: r.SpecialRequirements,
	}
}

// ListQuery selects a page of the global listing. EventID nil means all events.
type ListQuery struct {
	EventID *int64
	Page    int
	Limit   int
}

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

func (q ListQuery) validate() error {
	fields := map[string]string{}
	if q.Page < 1 {
		fields["page"] = "must be at least 1"
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		fields["limit"] = fmt.Sprintf("must be between 1 and %d", MaxLimit)
	}
	if q.EventID != nil && *q.EventID <= 0 {
		fields["event_id"] = "must be a positive id"
	}
	if len(fields) > 0 {
		return validationError("invalid pagination parameters", fields)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the struct tags of v and reports failures per json field.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationError(err.Error(), nil)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return validationError("invalid input", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
