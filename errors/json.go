package errors

import (
	"encoding/json"
)

// ErrorResponse is the flat, serializable form of an error used by the CLI.
// The wrapped chain is not included.
type ErrorResponse struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Classification string                 `json:"classification"`
	Context        map[string]interface{} `json:"context,omitempty"`
}

// ToJSON converts any error to an ErrorResponse. Returns nil if err is nil.
// Standard errors are reported with CodeUnknown and their full message.
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	message := err.Error()
	var context map[string]interface{}

	var fe FsError
	if As(err, &fe) {
		message = fe.Message()
		context = fe.Context()
	}

	return &ErrorResponse{
		Code:           string(GetCode(err)),
		Message:        message,
		Classification: string(GetClassification(err)),
		Context:        context,
	}
}

// MarshalJSON implements json.Marshaler.
func (e *fsError) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(&ErrorResponse{
		Code:           string(e.code),
		Message:        e.message,
		Classification: string(e.Classification()),
		Context:        e.context,
	})
	if err != nil {
		return nil, &fsError{code: CodeInternal, message: "failed to marshal error", cause: err}
	}
	return data, nil
}
