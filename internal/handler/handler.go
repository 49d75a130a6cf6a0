// Package handler exposes the composing sessions over JSON/HTTP for the
// operator front end.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/counter-pos/internal/domain/catalog"
	"github.com/xenking/counter-pos/internal/domain/sale"
	"github.com/xenking/counter-pos/internal/ledger"
)

const maxRequestSize = 64 << 10

// Handler serves the catalog and session endpoints.
type Handler struct {
	sessions *sale.Registry
	catalog  catalog.Source
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(sessions *sale.Registry, src catalog.Source) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  src,
	}
}

// Register mounts all routes on mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog", h.GetCatalog)

	mux.HandleFunc("POST /api/sessions", h.OpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.CancelSession)
	mux.HandleFunc("PUT /api/sessions/{id}/header", h.SetHeader)
	mux.HandleFunc("POST /api/sessions/{id}/lines", h.AddLine)
	mux.HandleFunc("PATCH /api/sessions/{id}/lines/{kind}/{index}", h.SetLineField)
	mux.HandleFunc("DELETE /api/sessions/{id}/lines/{kind}/{index}", h.RemoveLine)
	mux.HandleFunc("POST /api/sessions/{id}/submit", h.Submit)
}

// readBody returns the request body, bounded by maxRequestSize.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// badRequestError marks malformed request bodies and path parameters.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &badRequestError{err: err} }

// writeError maps domain errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		code     = http.StatusInternalServerError
		message  = "internal server error"
		problems []sale.Problem

		badReq   *badRequestError
		invalid  *sale.ValidationError
		rejected *ledger.RejectedError
	)

	switch {
	case errors.As(err, &badReq):
		code, message = http.StatusBadRequest, badReq.Error()
	case errors.Is(err, sale.ErrSessionNotFound), errors.Is(err, sale.ErrLineNotFound):
		code, message = http.StatusNotFound, err.Error()
	case errors.Is(err, sale.ErrSessionClosed):
		code, message = http.StatusGone, err.Error()
	case errors.Is(err, sale.ErrUnknownKind), errors.Is(err, sale.ErrUnknownField):
		code, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, sale.ErrSubmitInProgress):
		code, message = http.StatusConflict, err.Error()
	case errors.Is(err, sale.ErrEmptyOrder):
		code, message = http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &invalid):
		code, message, problems = http.StatusUnprocessableEntity, "order is not valid", invalid.Problems
	case errors.As(err, &rejected):
		code, message = http.StatusBadGateway, rejected.Reason
	case errors.Is(err, sale.ErrCatalogUnavailable):
		code, message = http.StatusServiceUnavailable, "catalog is unavailable"
	case errors.Is(err, ledger.ErrUnreachable):
		code, message = http.StatusServiceUnavailable, "could not connect to the ledger service"
	}

	if code == http.StatusInternalServerError || errors.Is(err, sale.ErrCatalogUnavailable) {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	if len(problems) > 0 {
		e.FieldStart("problems")
		encodeProblems(&e, problems)
	}
	e.ObjEnd()
	writeJSON(w, code, &e)
}
