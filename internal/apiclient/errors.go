package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"league-console/internal/model"
)

const maxErrorBody = 4 << 10

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return model.ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return model.ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return model.ErrNotFound
	case e.StatusCode >= 500:
		return model.ErrUpstream
	case e.StatusCode >= 400:
		return model.ErrInvalidInput
	}

	return nil
}

// StatusCode reports the backend status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}

	return 0
}

type backendError struct {
	Message string `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newStatusError(req *request, resp *http.Response) *StatusError {
	defer resp.Body.Close()

	statusErr := &StatusError{Method: req.method, Path: req.path, StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return statusErr
	}

	var parsed backendError
	if json.Unmarshal(raw, &parsed) == nil {
		switch {
		case parsed.Message != "":
			statusErr.Message = parsed.Message
		case parsed.Error != nil:
			statusErr.Message = parsed.Error.Message
		}
		return statusErr
	}

	statusErr.Message = strings.TrimSpace(string(raw))
	return statusErr
}
