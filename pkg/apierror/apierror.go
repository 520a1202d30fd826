// Package apierror renders client-facing failures: an RFC 7807
// Problem Detail envelope for transport-level errors (bad method,
// rate limiting, unauthenticated) grounded on the teacher's own
// pkg/api/apierror.go, and the domain envelope spec.md §7 specifies
// for everything a request handler's business logic rejects —
// `{ message, code, contents: [Diagnostic...] }`, where contents
// carries the accumulated diagnostics.Bag.
package apierror

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hashintel/hash-sub007/pkg/diagnostics"
)

// ProblemDetail implements RFC 7807 for transport-level failures that
// never reach a diagnostics.Bag (malformed method, missing auth
// header, rate limiting).
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string { return fmt.Sprintf("%s: %s", p.Title, p.Detail) }

// WriteProblem writes an RFC 7807 Problem Detail JSON response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:   fmt.Sprintf("https://hashintel.example/errors/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// Diagnostic is one wire-level entry in an Envelope's contents, the
// JSON rendering of a diagnostics.Issue.
type Diagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	At       string `json:"at,omitempty"`
}

// Envelope is spec.md §7's user-visible failure shape:
// `{ message, code, contents }`, where Code is the stable kind
// identifier of the primary failure and Contents carries every
// diagnostic accumulated alongside it.
type Envelope struct {
	Message  string       `json:"message"`
	Code     string       `json:"code"`
	Contents []Diagnostic `json:"contents"`
}

// FromBag builds an Envelope from a diagnostics.Bag: message and code
// come from the bag's first fatal issue (or, if none, its first
// issue); every issue in the bag is rendered into Contents.
func FromBag(bag *diagnostics.Bag) Envelope {
	issues := bag.Issues()
	env := Envelope{Contents: make([]Diagnostic, 0, len(issues))}
	if primary, ok := bag.FirstFatal(); ok {
		env.Message = primary.Message
		env.Code = primary.Code
	} else if len(issues) > 0 {
		env.Message = issues[0].Message
		env.Code = issues[0].Code
	}
	for _, iss := range issues {
		env.Contents = append(env.Contents, Diagnostic{
			Code: iss.Code, Message: iss.Message, Severity: iss.Severity.String(), At: iss.At,
		})
	}
	return env
}

// StatusFor maps a diagnostic code's kind to the HTTP status spec.md
// §7/§6 assigns it. Authorization's permission-denied kind maps to
// 404 (not 403) deliberately — a prober must not be able to
// distinguish "forbidden" from "doesn't exist".
func StatusFor(code string) int {
	switch code {
	case CodeValidation, CodeTypeInference:
		return http.StatusUnprocessableEntity
	case CodeRaceCondition:
		return http.StatusLocked
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeNotFound, CodePermissionDenied:
		return http.StatusNotFound
	case CodeBadInput:
		return http.StatusBadRequest
	case CodeStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// The stable kind identifiers spec.md §7's error taxonomy names.
const (
	CodeValidation       = "validation"
	CodeTemporal         = "temporal"
	CodeRaceCondition    = "race_condition"
	CodeAuthorization    = "authorization"
	CodePermissionDenied = "permission_denied"
	CodeTypeInference    = "type_inference"
	CodeStore            = "store"
	CodeNotFound         = "not_found"
	CodeAlreadyExists    = "already_exists"
	CodeBadInput         = "bad_input"
)

// WriteEnvelope writes env as the body of an HTTP response whose
// status is derived from its Code via StatusFor.
func WriteEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(env.Code))
	_ = json.NewEncoder(w).Encode(env)
}

// WriteInternal logs err (never exposed to the client) and writes a
// generic 500 Problem Detail, mirroring the teacher's WriteInternal.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}
