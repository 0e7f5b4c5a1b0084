package model

// Status is the enum value a backend puts in a `{status: ...}` validation
// error body. Resources with overlapping rules share statuses.
type Status string

const (
	StatusInternalServerError Status = "INTERNAL_SERVER_ERROR"
	StatusNotFound            Status = "NOT_FOUND"
	StatusMalformedBody       Status = "MALFORMED_BODY"

	StatusNameEmpty              Status = "NAME_EMPTY"
	StatusNameContainsWhitespace Status = "NAME_CONTAINS_WHITESPACE"
	StatusNameNotUnique          Status = "NAME_NOT_UNIQUE"
	StatusNameTooLong            Status = "NAME_TOO_LONG"

	StatusStructureNotFound Status = "STRUCTURE_NOT_FOUND"
	StatusTypeEmpty         Status = "TYPE_EMPTY"

	StatusValueEmpty     Status = "VALUE_EMPTY"
	StatusValueTooLong   Status = "VALUE_TOO_LONG"
	StatusParameterInUse Status = "PARAMETER_IN_USE"

	StatusTitleEmpty          Status = "TITLE_EMPTY"
	StatusTitleNotUnique      Status = "TITLE_NOT_UNIQUE"
	StatusTitleTooLong        Status = "TITLE_TOO_LONG"
	StatusSequenceLessThanOne Status = "SEQUENCE_LESS_THAN_ONE"
	StatusSequenceTooHigh     Status = "SEQUENCE_TOO_HIGH"
	StatusMethodInvalid       Status = "METHOD_INVALID"
	StatusHTTPStatusInvalid   Status = "HTTP_STATUS_INVALID"

	StatusUnknownParameter   Status = "UNKNOWN_PARAMETER"
	StatusUnsupportedForType Status = "UNSUPPORTED_FOR_TYPE"
	StatusInvalidRange       Status = "INVALID_RANGE"
	StatusStrictValueMissing Status = "STRICT_VALUE_MISSING"
	StatusConflictingValues  Status = "CONFLICTING_VALUES"
	StatusUnknownValueType   Status = "UNKNOWN_VALUE_TYPE"

	StatusBaseURLEmpty Status = "BASE_URL_EMPTY"
)

// ErrorResponse is the body of every rejected write.
type ErrorResponse struct {
	Status Status `json:"status"`
}

// Field names used to attribute a status to a form input.
const (
	FieldName            = "name"
	FieldType            = "type"
	FieldValue           = "initialValue"
	FieldTitle           = "title"
	FieldSequence        = "sequence"
	FieldMethod          = "method"
	FieldHTTPStatus      = "httpStatus"
	FieldValueType       = "valueType"
	FieldStrictValue     = "strictValue"
	FieldParameterID     = "parameterId"
	FieldRandomValue     = "randomValue"
	FieldParameterToRead = "parameterToReadId"
	FieldParameterToSave = "parameterToSaveId"
	FieldBaseURL         = "baseUrl"
)

var statusFields = map[Status]string{
	StatusNameEmpty:              FieldName,
	StatusNameContainsWhitespace: FieldName,
	StatusNameNotUnique:          FieldName,
	StatusNameTooLong:            FieldName,
	StatusTypeEmpty:              FieldType,
	StatusValueEmpty:             FieldValue,
	StatusValueTooLong:           FieldValue,
	StatusTitleEmpty:             FieldTitle,
	StatusTitleNotUnique:         FieldTitle,
	StatusTitleTooLong:           FieldTitle,
	StatusSequenceLessThanOne:    FieldSequence,
	StatusSequenceTooHigh:        FieldSequence,
	StatusMethodInvalid:          FieldMethod,
	StatusHTTPStatusInvalid:      FieldHTTPStatus,
	StatusBaseURLEmpty:           FieldBaseURL,
	StatusUnknownValueType:       FieldValueType,
	StatusStrictValueMissing:     FieldStrictValue,
	StatusInvalidRange:           FieldRandomValue,
	StatusUnsupportedForType:     FieldValueType,
}

// Field returns the form input a status is attributed to, or "" when the
// status concerns the whole resource.
func (s Status) Field() string {
	return statusFields[s]
}

var statusMessages = map[Status]string{
	StatusInternalServerError:    "Internal server error",
	StatusNotFound:               "Not found",
	StatusMalformedBody:          "Request body is not valid JSON",
	StatusNameEmpty:              "Name is empty",
	StatusNameContainsWhitespace: "Name contains whitespace",
	StatusNameNotUnique:          "Name is not unique",
	StatusNameTooLong:            "Name is too long",
	StatusStructureNotFound:      "Structure not found",
	StatusTypeEmpty:              "Type is empty",
	StatusValueEmpty:             "Initial value is empty",
	StatusValueTooLong:           "Initial value is too long",
	StatusParameterInUse:         "Parameter is used by a step",
	StatusTitleEmpty:             "Title is empty",
	StatusTitleNotUnique:         "Title is not unique",
	StatusTitleTooLong:           "Title is too long",
	StatusSequenceLessThanOne:    "Sequence must be at least 1",
	StatusSequenceTooHigh:        "Sequence exceeds the number of steps",
	StatusMethodInvalid:          "Unsupported HTTP method",
	StatusHTTPStatusInvalid:      "HTTP status must be between 100 and 599",
	StatusUnknownParameter:       "Unknown parameter",
	StatusUnsupportedForType:     "Value type not supported for this field type",
	StatusInvalidRange:           "Range start must not exceed its end",
	StatusStrictValueMissing:     "Value is required",
	StatusConflictingValues:      "Binding carries values of another type",
	StatusUnknownValueType:       "Unknown value type",
	StatusBaseURLEmpty:           "Base URL is empty",
}

// Message returns a human-readable description of the status.
func (s Status) Message() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return string(s)
}
