// Package response defines the JSON envelope shared by every API endpoint.
package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    any         `json:"details,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination expects page and limit to be positive.
func NewPagination(page, limit int, total int64) *Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func Success(data any, msg ...string) Response {
	resp := Response{
		Success: true,
		Data:    data,
	}

	if len(msg) > 0 {
		resp.Message = msg[0]
	}

	return resp
}

func Paginated(data any, pagination *Pagination) Response {
	return Response{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	}
}

func Error(msg string, details ...any) Response {
	resp := Response{
		Error: msg,
	}

	if len(details) > 0 && details[0] != nil {
		resp.Details = details[0]
	}

	return resp
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func issueForTag(tag string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url":
		return "Invalid url."
	case "min", "max", "gte", "lte":
		return "Value is out of range."
	default:
		return "Invalid value."
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	errs := make([]validationError, 0, len(validationErrs))
	for _, e := range validationErrs {
		errs = append(errs, validationError{
			Field: e.Field(),
			Value: e.Value(),
			Issue: issueForTag(e.Tag()),
		})
	}

	return errs
}

// ValidationError wraps validator errors into an error envelope with one
// detail per failed field.
func ValidationError(err error) Response {
	if errs := getValidationErrors(err); len(errs) > 0 {
		return Error("validation failed", errs)
	}
	return Error("validation failed")
}
