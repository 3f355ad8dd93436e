package devbackend

import (
	"context"
	"net/http"
)

func withSubject(r *http.Request, subject string) context.Context {
	return context.WithValue(r.Context(), subjectKey, subject)
}

func subjectFrom(r *http.Request) string {
	subject, _ := r.Context().Value(subjectKey).(string)
	return subject
}
