package identity

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// SignupRequest is the inbound registration payload.
type SignupRequest struct {
	Name     string `json:"name" validate:"max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// SigninRequest is the inbound credential payload.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims and canonicalizes fields prior to validation. Email
// normalization here must match what the repository stores, otherwise
// uniqueness and lookup can disagree.
func (r *SignupRequest) Normalize() {
	r.Name = norm.NFC.String(strings.TrimSpace(r.Name))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Role == "" {
		r.Role = string(RoleUser)
	}
}

// Normalize canonicalizes the email the same way SignupRequest does.
func (r *SigninRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// FieldIssue is one field-level validation violation.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CheckStruct runs exhaustive validation and returns every violation in
// encounter order, so the caller sees all invalid fields at once.
func CheckStruct(v *validator.Validate, payload any) []FieldIssue {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldIssue{{Field: "request", Message: err.Error()}}
	}
	issues := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, FieldIssue{
			Field:   strings.ToLower(fe.Field()),
			Message: issueMessage(fe),
		})
	}
	return issues
}

// FormatIssues joins issue messages into one deterministic string.
func FormatIssues(issues []FieldIssue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.Message
	}
	return strings.Join(parts, ", ")
}

func issueMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
