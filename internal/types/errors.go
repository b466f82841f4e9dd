package types

import "fmt"

// Stable machine codes for errors the core distinguishes.
const (
	CodeCityNotFound        = "CITY_NOT_FOUND"
	CodePOINotFound         = "POI_NOT_FOUND"
	CodeGenerationFailed    = "ITINERARY_GENERATION_FAILED"
	CodeEditValidation      = "EDIT_VALIDATION_FAILED"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeEvaluationFailed    = "EVALUATION_FAILED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeTimeout             = "TIMEOUT"
	CodeValidation          = "VALIDATION_ERROR"
)

// AppError carries a user-facing message, a stable machine code, and a
// details map for the HTTP layer.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func ErrCityNotFound(city string) *AppError {
	return NewAppError(CodeCityNotFound, fmt.Sprintf("could not locate %q; try adding the country name", city)).
		WithDetail("city", city)
}

func ErrPOINotFound(city string) *AppError {
	return NewAppError(CodePOINotFound, fmt.Sprintf("no points of interest found for %s; try different interests", city)).
		WithDetail("city", city)
}

func ErrSessionNotFound(id string) *AppError {
	return NewAppError(CodeSessionNotFound, "session not found or expired").WithDetail("session_id", id)
}
