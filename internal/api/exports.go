package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/trihash/internal/export"
)

func writePayload(w http.ResponseWriter, f export.Format, data []byte) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Export handles POST /api/export.
//
//	@Summary		Export current identifiers of records
//	@Description	Returns the payload, or writes it to the export sink when name is set.
//	@Tags			export
//	@Accept			json
//	@Produce		json,plain
//	@Param			body	body		ExportRequest	true	"Records and format"
//	@Success		200		{string}	string			"Export payload"
//	@Success		201		{object}	ExportFileDTO
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req ExportRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	f, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	var opts []export.Option
	if req.NoNewlines {
		opts = append(opts, export.WithoutNewlines())
	}

	if req.Name != "" {
		file, err := h.svc.ExportToSink(r.Context(), req.Name, req.RecordIDs, f, opts...)
		if err != nil {
			writeError(w, "export to sink", err)
			return
		}
		writeJSON(w, http.StatusCreated, file)
		return
	}

	data, err := h.svc.Export(r.Context(), req.RecordIDs, f, opts...)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writePayload(w, f, data)
}

// ExportRecord handles GET /api/records/{id}/export.
//
//	@Summary		Export the current identifiers of one record
//	@Tags			export
//	@Produce		json,plain
//	@Param			id		path		string	true	"Record ID"
//	@Param			format	query		string	false	"structured, compact, symbol or identifiers"	default(structured)
//	@Success		200		{string}	string	"Export payload"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/export [get]
func (h *Handler) ExportRecord(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = export.Structured.String()
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		writeError(w, "export record", err)
		return
	}
	data, err := h.svc.Export(r.Context(), []string{pathParam(r, "id")}, f)
	if err != nil {
		writeError(w, "export record", err)
		return
	}
	writePayload(w, f, data)
}

// Import handles POST /api/import.
//
//	@Summary		Read an export payload back into identifier mappings
//	@Tags			export
//	@Accept			plain
//	@Produce		json
//	@Param			format	query		string	true	"structured, compact or symbol"
//	@Param			body	body		string	true	"Export payload"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, "import", err)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	ms, err := h.svc.Import(r.Context(), data, f)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	resp := ImportResponse{Records: make([]map[string]IdentifierDTO, len(ms))}
	for i, m := range ms {
		resp.Records[i] = toIdentifierDTOs(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListExports handles GET /api/exports.
//
//	@Summary		List payloads in the export sink
//	@Tags			export
//	@Produce		json
//	@Success		200	{array}	ExportFileDTO
//	@Security		BearerAuth
//	@Router			/exports [get]
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListExports(r.Context())
	if err != nil {
		writeError(w, "list exports", err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// ReadExport handles GET /api/exports/*.
//
//	@Summary		Download a payload from the export sink
//	@Tags			export
//	@Produce		json,plain
//	@Param			path	path		string	true	"Payload path"
//	@Success		200		{string}	string	"Export payload"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exports/{path} [get]
func (h *Handler) ReadExport(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(pathParam(r, "*"), "/")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, err := h.svc.ReadExport(r.Context(), name)
	if err != nil {
		writeError(w, "read export", err)
		return
	}
	f := export.Compact
	for _, candidate := range export.Formats {
		if strings.HasSuffix(name, candidate.Extension()) {
			f = candidate
			break
		}
	}
	writePayload(w, f, data)
}

// DeleteExport handles DELETE /api/exports/*.
//
//	@Summary		Remove a payload from the export sink
//	@Tags			export
//	@Param			path	path	string	true	"Payload path"
//	@Success		204		"Payload deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exports/{path} [delete]
func (h *Handler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(pathParam(r, "*"), "/")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteExport(r.Context(), name); err != nil {
		writeError(w, "delete export", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
