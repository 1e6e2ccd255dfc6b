package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/shelf/internal/engine"
	"github.com/starford/shelf/internal/models"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc     Service
	setRoot RootSetter
}

// NewHandler creates a new Handler. setRoot may be nil, in which case the
// root cannot be changed over HTTP.
func NewHandler(svc Service, setRoot RootSetter) *Handler {
	return &Handler{svc: svc, setRoot: setRoot}
}

// entryPath extracts the relative path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. books%2Fa.md).
func entryPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListFiles handles GET /api/files.
//
//	@Summary		List indexed records
//	@Tags			files
//	@Produce		json
//	@Param			folder	query		string	false	"Folder to list, recursively"
//	@Param			q		query		string	false	"Case-insensitive attribute search"
//	@Param			sort	query		string	false	"Schema attribute to sort by"
//	@Param			desc	query		bool	false	"Sort descending"
//	@Success		200		{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	desc, _ := strconv.ParseBool(q.Get("desc"))
	recs, err := h.svc.QueryFiles(engine.FileQuery{
		Folder:     strings.Trim(q.Get("folder"), "/"),
		Filter:     q.Get("q"),
		SortKey:    q.Get("sort"),
		Descending: desc,
	})
	if err != nil {
		writeError(w, "list files failed", err)
		return
	}
	if recs == nil {
		recs = []models.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": recs,
		"total": len(recs),
	})
}

// GetFile handles GET /api/files/*.
//
//	@Summary		Read a record from disk, body included
//	@Tags			files
//	@Produce		json
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	engine.RecordView
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := entryPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	view, err := h.svc.ReadRecord(path)
	if err != nil {
		writeError(w, "get file failed", err, "path", path)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type saveFileRequest struct {
	Modified   string                      `json:"modified"`
	Attributes map[string]models.AttrValue `json:"attributes"`
	Markdown   *string                     `json:"markdown"`
}

// SaveFile handles PUT /api/files/*.
//
//	@Summary		Write a record, refusing stale writes unless forced
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"File path"
//	@Param			forced	query		bool			false	"Overwrite even if the file changed on disk"
//	@Param			body	body		saveFileRequest	true	"Record"
//	@Success		200		{object}	models.Record
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [put]
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	path := entryPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req saveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	forced, _ := strconv.ParseBool(r.URL.Query().Get("forced"))

	saved, err := h.svc.SaveRecord(models.Record{
		Path:     path,
		Modified: req.Modified,
		Markdown: req.Markdown,
		Attrs:    req.Attributes,
	}, forced)
	if err != nil {
		writeError(w, "save file failed", err, "path", path)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListFolders handles GET /api/folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.Folders()
	if err != nil {
		writeError(w, "list folders failed", err)
		return
	}
	if folders == nil {
		folders = []models.Folder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// FoldersUnderSchema handles GET /api/folders/schema?path=.
// path names a schema file, its reserved folder or the owning folder.
func (h *Handler) FoldersUnderSchema(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	folders, err := h.svc.FoldersUnderSchema(path)
	if err != nil {
		writeError(w, "list folders under schema failed", err, "path", path)
		return
	}
	if folders == nil {
		folders = []models.Folder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// ListSchemas handles GET /api/schemas. Schemas without items are only
// listed with all=true.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	list := h.svc.SchemaList()
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		list = h.svc.SchemaListAll()
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": list})
}

// GetSchema handles GET /api/schemas/*: the schema governing a path.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	path := entryPath(r)
	sr, err := h.svc.SchemaFor(path)
	if err != nil {
		writeError(w, "get schema failed", err, "path", path)
		return
	}
	writeJSON(w, http.StatusOK, sr)
}

// SaveSchema handles PUT /api/schemas/*.
//
//	@Summary		Create or replace the schema owned by a folder
//	@Tags			schemas
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string					true	"Folder, reserved folder or schema file path"
//	@Param			body	body		models.SchemaDefinition	true	"Schema"
//	@Success		200		{object}	models.SchemaDefinition
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schemas/{path} [put]
func (h *Handler) SaveSchema(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	path := entryPath(r)
	var def models.SchemaDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	saved, err := h.svc.SaveSchema(path, def)
	if err != nil {
		writeError(w, "save schema failed", err, "path", path)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type rootRequest struct {
	Path string `json:"path"`
}

func (r rootRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// GetRoot handles GET /api/root.
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"root": h.svc.Root()})
}

// SetRoot handles POST /api/root.
func (h *Handler) SetRoot(w http.ResponseWriter, r *http.Request) {
	if h.setRoot == nil {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("root is fixed"))
		return
	}
	var req rootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	changed, aerr := h.setRoot(req.Path)
	if aerr != nil && !changed {
		writeError(w, "set root failed", aerr, "path", req.Path)
		return
	}
	resp := map[string]any{"root": h.svc.Root(), "changed": changed}
	if aerr != nil {
		resp["warning"] = aerr
	}
	writeJSON(w, http.StatusOK, resp)
}
