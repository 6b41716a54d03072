// Package handlers implements the HTTP boundary. Handlers decode requests,
// call the application service, and encode the response envelope; no analysis
// logic lives here.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
)

// envelope is the uniform response body: code "OK" with data on success, the
// AppError code and message on failure.
type envelope struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Code: "OK", Message: "success", Data: data})
}

// writeAppError maps the error's code to an HTTP status. Unclassified errors
// are masked as internal.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()
	message := err.Error()
	if status == http.StatusInternalServerError && code == errors.CodeUnknown {
		message = "internal server error"
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, envelope{Code: code.String(), Message: message})
}

// decodeBody reads a JSON request body into dst. An empty body is accepted
// and leaves dst zero-valued; unknown keys are ignored.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeBadRequest, "request body is not valid JSON")
	}
	return nil
}
