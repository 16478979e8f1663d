package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/hashservice"
	"github.com/starford/trihash/internal/models"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *hashservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *hashservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pathParam returns a URL parameter. Base96 symbols include '/', '?' and
// '%', so clients percent-encode them; chi matched against the raw path in
// that case and the value is still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

func toHashResponse(res *hashservice.HashResult) HashResponse {
	return HashResponse{
		RecordID:       res.RecordID,
		Identifiers:    toIdentifierDTOs(res.Identifiers),
		FramesChecksum: res.FramesChecksum,
	}
}

// HashRecord handles POST /api/records.
//
//	@Summary		Store a record and generate its identifiers
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			strict	query		bool		false	"Reject records missing frame input fields"
//	@Param			body	body		HashRequest	true	"Record to hash"
//	@Success		201		{object}	HashResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) HashRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req HashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Fields == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("fields are required"))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if strict, _ := strconv.ParseBool(r.URL.Query().Get("strict")); strict {
		if err := h.svc.CheckRecord(req.Fields); err != nil {
			writeError(w, "check record", err)
			return
		}
	}

	res, err := h.svc.HashRecord(r.Context(), models.Record{ID: req.ID, Fields: req.Fields})
	if err != nil {
		writeError(w, "hash record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHashResponse(res))
}

// HashRecords handles POST /api/records/batch.
//
//	@Summary		Store and hash several records
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]HashRequest	true	"Records to hash"
//	@Success		201		{array}		HashResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/batch [post]
func (h *Handler) HashRecords(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req []HashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	recs := make([]models.Record, len(req))
	for i, item := range req {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		recs[i] = models.Record{ID: item.ID, Fields: item.Fields}
	}
	results, err := h.svc.HashRecords(r.Context(), recs)
	if err != nil {
		writeError(w, "hash records", err)
		return
	}
	out := make([]HashResponse, len(results))
	for i, res := range results {
		out[i] = toHashResponse(res)
	}
	writeJSON(w, http.StatusCreated, out)
}

// ListRecords handles GET /api/records.
//
//	@Summary		List stored records
//	@Tags			records
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	RecordListResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	recs, total, err := h.svc.ListRecords(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: recs, Total: total})
}

// GetRecord handles GET /api/records/{id}.
//
//	@Summary		Get a stored record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record ID"
//	@Success		200	{object}	models.Record
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetRecord(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/records/{id}.
//
//	@Summary		Delete a record and its identifier history
//	@Tags			records
//	@Param			id	path	string	true	"Record ID"
//	@Success		204	"Record deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRecord(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Identifiers handles GET /api/records/{id}/identifiers.
//
//	@Summary		Current identifiers of a record
//	@Tags			identifiers
//	@Produce		json
//	@Param			id	path		string	true	"Record ID"
//	@Success		200	{object}	IdentifierListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/identifiers [get]
func (h *Handler) Identifiers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Identifiers(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, "list identifiers", err)
		return
	}
	writeJSON(w, http.StatusOK, IdentifierListResponse{Identifiers: ids})
}

// History handles GET /api/records/{id}/history/{field}.
//
//	@Summary		Identifier history of one hash field
//	@Tags			identifiers
//	@Produce		json
//	@Param			id		path		string	true	"Record ID"
//	@Param			field	path		string	true	"Hash field"
//	@Success		200		{object}	IdentifierListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/history/{field} [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.History(r.Context(), pathParam(r, "id"), pathParam(r, "field"))
	if err != nil {
		writeError(w, "identifier history", err)
		return
	}
	writeJSON(w, http.StatusOK, IdentifierListResponse{Identifiers: ids})
}

// Verify handles GET /api/records/{id}/verify/{field}.
//
//	@Summary		Check a stored identifier against its record
//	@Tags			identifiers
//	@Produce		json
//	@Param			id		path		string	true	"Record ID"
//	@Param			field	path		string	true	"Hash field"
//	@Success		200		{object}	VerifyResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	VerifyResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/verify/{field} [get]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Verify(r.Context(), pathParam(r, "id"), pathParam(r, "field"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, VerifyResponse{Valid: true})
	case errors.Is(err, engine.ErrMismatch):
		writeJSON(w, http.StatusConflict, VerifyResponse{Error: err.Error()})
	default:
		writeError(w, "verify identifier", err)
	}
}

// Lookup handles GET /api/lookup/{sch}.
//
//	@Summary		Find current identifiers sharing a content segment
//	@Tags			identifiers
//	@Produce		json
//	@Param			sch	path		string	true	"Base96 SCH segment, percent-encoded"
//	@Success		200	{object}	IdentifierListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/lookup/{sch} [get]
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.LookupSCH(r.Context(), pathParam(r, "sch"))
	if err != nil {
		writeError(w, "lookup sch", err)
		return
	}
	writeJSON(w, http.StatusOK, IdentifierListResponse{Identifiers: ids})
}

// DecodeSegment handles GET /api/segments/{segment}.
//
//	@Summary		Decode a Base96 segment or composite identifier
//	@Tags			identifiers
//	@Produce		json
//	@Param			segment	path		string	true	"16 or 48 Base96 symbols, percent-encoded"
//	@Success		200		{object}	DecodeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/segments/{segment} [get]
func (h *Handler) DecodeSegment(w http.ResponseWriter, r *http.Request) {
	s := pathParam(r, "segment")
	segments := []string{s}
	if utf8.RuneCountInString(s) == composite.Len {
		id, err := composite.Parse(s, 0)
		if err != nil {
			writeError(w, "decode identifier", err)
			return
		}
		segments = []string{id.SCH(), id.CUID(), id.UUID()}
	}

	resp := DecodeResponse{Segments: make([]SegmentResponse, len(segments))}
	for i, seg := range segments {
		d, err := base96.Decode(seg)
		if err != nil {
			writeError(w, "decode segment", err)
			return
		}
		resp.Segments[i] = SegmentResponse{Segment: seg, Hex: d.String()}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Frames handles GET /api/frames.
//
//	@Summary		Describe the active frame set
//	@Tags			frames
//	@Produce		json
//	@Success		200	{object}	FramesResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/frames [get]
func (h *Handler) Frames(w http.ResponseWriter, _ *http.Request) {
	set := h.svc.Frames()
	if set == nil {
		writeError(w, "frames", engine.ErrNoFrames)
		return
	}
	writeJSON(w, http.StatusOK, FramesResponse{
		Checksum: set.Checksum(),
		Schema:   set.Schema(),
		Frames:   set.Frames(),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across record fields
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
