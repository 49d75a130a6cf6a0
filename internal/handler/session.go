package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/counter-pos/internal/domain/sale"
)

// GetCatalog returns the active products and combos to choose from.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", sale.ErrCatalogUnavailable, err))
		return
	}

	var e jx.Encoder
	encodeCatalog(&e, snap)
	writeJSON(w, http.StatusOK, &e)
}

// OpenSession starts composing a new sale.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Open()
	h.respondSession(w, r, http.StatusCreated, s)
}

// GetSession returns the cart with a freshly computed quote.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, s)
}

// CancelSession discards the cart without submitting anything.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Close(id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetHeader updates the sale type and/or detail.
func (h *Handler) SetHeader(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodeHeaderRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.Edit(func(c *sale.Cart) error {
		if req.SaleType != nil {
			c.SetSaleType(*req.SaleType)
		}
		if req.Detail != nil {
			c.SetDetail(*req.Detail)
		}
		return nil
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, s)
}

// AddLine appends an empty product or combo line.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := decodeAddLineRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.Edit(func(c *sale.Cart) error {
		_, err := c.AddLine(kind)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, s)
}

// SetLineField replaces one field of one line.
func (h *Handler) SetLineField(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := lineRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	field, value, err := decodeSetFieldRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.Edit(func(c *sale.Cart) error {
		return c.SetLineField(ref, field, value)
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, s)
}

// RemoveLine deletes one line.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := lineRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.Edit(func(c *sale.Cart) error {
		return c.RemoveLine(ref)
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, s)
}

// Submit assembles and sends the order to the ledger.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	receipt, err := s.Submit(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeReceipt(&e, receipt)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, code int, s *sale.Session) {
	cart, q, err := s.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSession(&e, s.ID().String(), cart, q)
	writeJSON(w, code, &e)
}

func (h *Handler) session(r *http.Request) (*sale.Session, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, err
	}
	return h.sessions.Get(id)
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// Unknown ids and malformed ids look the same to the caller.
		return uuid.Nil, sale.ErrSessionNotFound
	}
	return id, nil
}

func lineRef(r *http.Request) (sale.LineRef, error) {
	kind, err := sale.ParseLineKind(r.PathValue("kind"))
	if err != nil {
		return sale.LineRef{}, err
	}
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return sale.LineRef{}, badRequest(errors.Errorf("invalid line index %q", r.PathValue("index")))
	}
	return sale.LineRef{Kind: kind, Index: idx}, nil
}
