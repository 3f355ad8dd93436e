package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"league-console/internal/model"
	"league-console/pkg/apierror"
)

// Order matters: a session-expired error also wraps the backend's 401.
var sentinelErrors = []struct {
	err    error
	status int
	code   string
	msg    string
}{
	{model.ErrInvalidCredentials, http.StatusUnauthorized, apierror.CodeInvalidCredentials, "invalid username, email or password"},
	{model.ErrSessionExpired, http.StatusUnauthorized, apierror.CodeSessionExpired, "session expired, please sign in again"},
	{model.ErrUnauthorized, http.StatusUnauthorized, apierror.CodeUnauthorized, "authentication required"},
	{model.ErrForbidden, http.StatusForbidden, apierror.CodeForbidden, "access denied"},
	{model.ErrNotFound, http.StatusNotFound, apierror.CodeNotFound, "not found"},
	{model.ErrInvalidInput, http.StatusBadRequest, apierror.CodeBadRequest, "invalid input"},
	{model.ErrUpstream, http.StatusBadGateway, apierror.CodeUpstream, "league service unavailable"},
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	writeEnvelope(w, status, model.APIResponse{Success: true, Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeEnvelope(w, status, model.APIResponse{Success: false, Error: body})
}

func errorBody(err error) (int, *model.APIError) {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus, &model.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
	}

	for _, s := range sentinelErrors {
		if !errors.Is(err, s.err) {
			continue
		}
		body := &model.APIError{Code: s.code, Message: s.msg}
		if s.err == model.ErrInvalidInput {
			body.Details = err.Error()
		}
		return s.status, body
	}

	slog.Error("unhandled error in writeError", "error", err)
	return http.StatusInternalServerError, &model.APIError{Code: apierror.CodeInternal, Message: "unexpected server error"}
}

func writeEnvelope(w http.ResponseWriter, status int, body model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
