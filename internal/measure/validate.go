package measure

import (
	"encoding/base64"
	"time"
)

// uploadRequest is the wire shape of POST /upload. Pointer fields distinguish
// a missing key from a zero value.
type uploadRequest struct {
	Image           *string `json:"image"`
	CustomerCode    *string `json:"customer_code"`
	MeasureDatetime *string `json:"measure_datetime"`
	MeasureType     *string `json:"measure_type"`
}

// confirmRequest is the wire shape of PATCH /confirm.
type confirmRequest struct {
	MeasureUUID    *string  `json:"measure_uuid"`
	ConfirmedValue *float64 `json:"confirmed_value"`
}

// UploadInput is a validated upload payload ready for the service.
type UploadInput struct {
	Image           []byte
	CustomerCode    string
	MeasureDatetime time.Time
	MeasureType     MeasureType
}

// ConfirmInput is a validated confirm payload ready for the service.
type ConfirmInput struct {
	MeasureUUID    string
	ConfirmedValue int
}

// datetimeLayouts are the ISO 8601 shapes accepted for measure_datetime.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validate checks the upload schema and short-circuits with INVALID_DATA on
// the first violated rule. No side effects beyond the returned error.
func (r *uploadRequest) validate() (*UploadInput, *Error) {
	if r.Image == nil {
		return nil, errInvalidData(`"image" is required`)
	}
	image, err := base64.StdEncoding.DecodeString(*r.Image)
	if err != nil || len(image) == 0 {
		return nil, errInvalidData(`"image" must be a valid base64 string`)
	}
	if r.CustomerCode == nil {
		return nil, errInvalidData(`"customer_code" is required`)
	}
	if *r.CustomerCode == "" {
		return nil, errInvalidData(`"customer_code" is not allowed to be empty`)
	}
	if r.MeasureDatetime == nil {
		return nil, errInvalidData(`"measure_datetime" is required`)
	}
	datetime, ok := parseDatetime(*r.MeasureDatetime)
	if !ok {
		return nil, errInvalidData(`"measure_datetime" must be in ISO 8601 date format`)
	}
	if r.MeasureType == nil {
		return nil, errInvalidData(`"measure_type" is required`)
	}
	// Upload is strict about casing; only the list filter is case-insensitive.
	measureType := MeasureType(*r.MeasureType)
	if measureType != TypeWater && measureType != TypeGas {
		return nil, errInvalidData(`"measure_type" must be one of [WATER, GAS]`)
	}

	return &UploadInput{
		Image:           image,
		CustomerCode:    *r.CustomerCode,
		MeasureDatetime: datetime,
		MeasureType:     measureType,
	}, nil
}

// validate checks the confirm schema.
func (r *confirmRequest) validate() (*ConfirmInput, *Error) {
	if r.MeasureUUID == nil {
		return nil, errInvalidData(`"measure_uuid" is required`)
	}
	if *r.MeasureUUID == "" {
		return nil, errInvalidData(`"measure_uuid" is not allowed to be empty`)
	}
	if r.ConfirmedValue == nil {
		return nil, errInvalidData(`"confirmed_value" is required`)
	}

	return &ConfirmInput{
		MeasureUUID:    *r.MeasureUUID,
		ConfirmedValue: int(*r.ConfirmedValue),
	}, nil
}
