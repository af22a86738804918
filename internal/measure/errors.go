package measure

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by Store and ImageStore implementations. The
// service narrows them with errors.Is and maps them to API error kinds.
var (
	ErrNotFound        = errors.New("measure not found")
	ErrDuplicatePeriod = errors.New("measure already recorded for this period")
	ErrFileNotFound    = errors.New("file not found")
)

// Error is the closed set of failures the API can answer with. Every failure
// path produces one of these deliberately; handlers never infer a kind from
// the shape of a caught value.
type Error struct {
	Code        string `json:"error_code"`
	Status      int    `json:"-"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

func errInvalidData(description string) *Error {
	return &Error{Code: "INVALID_DATA", Status: http.StatusBadRequest, Description: description}
}

func errDoubleReport() *Error {
	return &Error{Code: "DOUBLE_REPORT", Status: http.StatusConflict, Description: "Reading for this month already recorded"}
}

func errMeasureNotFound() *Error {
	return &Error{Code: "MEASURE_NOT_FOUND", Status: http.StatusNotFound, Description: "Measure not found"}
}

func errConfirmationDuplicate() *Error {
	return &Error{Code: "CONFIRMATION_DUPLICATE", Status: http.StatusConflict, Description: "Measure already confirmed"}
}

func errInvalidType() *Error {
	return &Error{Code: "INVALID_TYPE", Status: http.StatusBadRequest, Description: "Measure type not allowed"}
}

func errMeasuresNotFound() *Error {
	return &Error{Code: "MEASURES_NOT_FOUND", Status: http.StatusNotFound, Description: "No readings found"}
}

func errInternal() *Error {
	return &Error{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError, Description: "Internal server error"}
}
