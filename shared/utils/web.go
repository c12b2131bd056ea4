package utils

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/driftvault/driftvault/shared/errors"
	"github.com/driftvault/driftvault/shared/logger"
)

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	if e, ok := err.(*errors.ErrorWithStatusCode); ok {
		writeJSONError(w, e.Message, e.StatusCode)
		return
	}
	// default error is 500
	writeJSONError(w, err.Error(), http.StatusInternalServerError)
}

// writeJSONError mirrors http.Error but with a JSON body, matching the
// {"error": "..."} shape API clients expect.
func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("encoding response", "err", err)
	}
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("decoding body", "err", err)
		return errors.InvalidArgument("body is invalid json")
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("validating body", "err", err)
		return errors.InvalidArgument("required fields missing or invalid")
	}
	return nil
}

func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("decoding body", "err", err)
		return errors.InvalidArgument("body is invalid json")
	}
	return nil
}
