package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

// DocumentHandler stores trainer certificates and ID scans.
type DocumentHandler struct {
	store   serviceStore
	storage utils.Storage
	log     logging.Logger
}

func NewDocumentHandler(store serviceStore, storage utils.Storage, log logging.Logger) *DocumentHandler {
	return &DocumentHandler{store: store, storage: storage, log: log}
}

func documentKindValid(k string) bool {
	switch k {
	case "certification", "government_id", "other":
		return true
	}
	return false
}

type documentResp struct {
	models.TrainerDocument
	URL string `json:"url"`
}

// POST /trainers/me/documents - multipart form with "file" and "kind"
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Max 10MB
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "file too large or invalid form", nil, err.Error())
		return
	}
	kind := r.FormValue("kind")
	if kind == "" {
		kind = "other"
	}
	if !documentKindValid(kind) {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid kind", nil, nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "missing file field", nil, err.Error())
		return
	}
	defer file.Close()

	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}

	ctx := r.Context()
	key, err := h.storage.SaveFile(ctx, fmt.Sprintf("trainer-documents/%s", t.ID), header.Filename, file)
	if err != nil {
		internalError(w, r, h.log, "failed to save file", err)
		return
	}

	doc := &models.TrainerDocument{
		ID:        utils.GenerateID(),
		TrainerID: t.ID,
		Kind:      kind,
		Filename:  header.Filename,
		URLSuffix: key,
	}
	if err := h.store.CreateTrainerDocument(ctx, doc); err != nil {
		// Don't leave an orphaned object behind.
		if derr := h.storage.DeleteFile(ctx, key); derr != nil {
			h.log.Warn(ctx, "orphaned document object", "key", key, "err", derr)
		}
		internalError(w, r, h.log, "failed to record document", err)
		return
	}

	url, err := h.storage.URL(ctx, key)
	if err != nil {
		h.log.Warn(ctx, "document url failed", "key", key, "err", err)
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "document uploaded", documentResp{TrainerDocument: *doc, URL: url}, nil)
}

// GET /trainers/me/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}

	ctx := r.Context()
	docs, err := h.store.ListTrainerDocuments(ctx, t.ID)
	if err != nil {
		internalError(w, r, h.log, "failed to list documents", err)
		return
	}

	resp := make([]documentResp, len(docs))
	for i, d := range docs {
		url, err := h.storage.URL(ctx, d.URLSuffix)
		if err != nil {
			h.log.Warn(ctx, "document url failed", "key", d.URLSuffix, "err", err)
		}
		resp[i] = documentResp{TrainerDocument: d, URL: url}
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", resp, nil)
}

// DELETE /trainers/me/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}

	ctx := r.Context()
	doc, err := h.store.GetTrainerDocument(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && doc.TrainerID != t.ID) {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "document not found", nil, nil)
		return
	}
	if err != nil {
		internalError(w, r, h.log, "failed to load document", err)
		return
	}

	if err := h.store.DeleteTrainerDocument(ctx, doc.ID); err != nil {
		internalError(w, r, h.log, "failed to delete document", err)
		return
	}
	if err := h.storage.DeleteFile(ctx, doc.URLSuffix); err != nil {
		h.log.Warn(ctx, "document object not removed", "key", doc.URLSuffix, "err", err)
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "document deleted", nil, nil)
}
