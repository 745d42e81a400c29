package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// CatalogHandler serves a read-only view of the emulator's item catalog and
// temporary storage.
type CatalogHandler struct {
	repo   emulator.Repository
	store  emulator.BlobStore
	logger *slog.Logger
}

func NewCatalogHandler(repo emulator.Repository, store emulator.BlobStore, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{
		repo:   repo,
		store:  store,
		logger: logger.With("component", "api"),
	}
}

// Routes returns the router for catalog endpoints. It expects to be mounted
// under a pattern carrying the {app_id} parameter.
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/items", h.ListItems)
	r.Get("/items/{item_id}", h.GetItem)
	r.Get("/users/{user}/files", h.ListRemoteFiles)
	return r
}

// ItemResponse is a published item as returned by the catalog
type ItemResponse struct {
	workshop.ItemDetails
	TagList       []string `json:"tag_list"`
	FileSizeHuman string   `json:"file_size_human"`
}

// ListItemsResponse is one page of a user's items
type ListItemsResponse struct {
	Items  []ItemResponse `json:"items"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// RemoteFilesResponse lists a user's temporary storage
type RemoteFilesResponse struct {
	Files          []RemoteFileResponse `json:"files"`
	TotalSize      int64                `json:"total_size"`
	TotalSizeHuman string               `json:"total_size_human"`
}

// RemoteFileResponse is one temporary storage entry
type RemoteFileResponse struct {
	workshop.RemoteFile
	UpdatedAt time.Time `json:"updated_at"`
}

func newItemResponse(item *emulator.Item) ItemResponse {
	details := item.Details()
	return ItemResponse{
		ItemDetails:   details,
		TagList:       details.TagList(),
		FileSizeHuman: humanize.Bytes(uint64(max(details.FileSize, 0))),
	}
}

// ListItems lists the items an owner published for the app
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	app, ok := h.appID(w, r)
	if !ok {
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		http.Error(w, "owner query parameter is required", http.StatusBadRequest)
		return
	}

	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		http.Error(w, "Invalid offset", http.StatusBadRequest)
		return
	}
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxPageSize)

	items, err := h.repo.ListItemsByOwner(r.Context(), app, owner, offset, limit)
	if err != nil {
		h.logger.Error("Failed to list items", "app_id", app, "owner", owner, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := ListItemsResponse{
		Items:  make([]ItemResponse, 0, len(items)),
		Offset: offset,
		Limit:  limit,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, newItemResponse(item))
	}
	render.JSON(w, r, resp)
}

// GetItem returns one item of the app
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	app, ok := h.appID(w, r)
	if !ok {
		return
	}

	idStr := chi.URLParam(r, "item_id")
	id, err := workshop.ParseItemID(idStr)
	if err != nil || id == 0 {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	item, err := h.repo.GetItem(r.Context(), id)
	if errors.Is(err, emulator.ErrItemNotFound) || (err == nil && item.AppID != app) {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to get item", "item_id", idStr, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, newItemResponse(item))
}

// ListRemoteFiles lists a user's temporary storage within the app
func (h *CatalogHandler) ListRemoteFiles(w http.ResponseWriter, r *http.Request) {
	app, ok := h.appID(w, r)
	if !ok {
		return
	}

	user := chi.URLParam(r, "user")
	prefix := emulator.RemotePrefix(app, user)
	objs, err := h.store.List(r.Context(), prefix)
	if err != nil {
		h.logger.Error("Failed to list remote files", "app_id", app, "user", user, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := RemoteFilesResponse{Files: make([]RemoteFileResponse, 0, len(objs))}
	for _, obj := range objs {
		resp.Files = append(resp.Files, RemoteFileResponse{
			RemoteFile: workshop.RemoteFile{
				Name: strings.TrimPrefix(obj.Key, prefix),
				Size: obj.Size,
			},
			UpdatedAt: obj.UpdatedAt,
		})
		resp.TotalSize += obj.Size
	}
	resp.TotalSizeHuman = humanize.Bytes(uint64(resp.TotalSize))
	render.JSON(w, r, resp)
}

func (h *CatalogHandler) appID(w http.ResponseWriter, r *http.Request) (workshop.AppID, bool) {
	raw := chi.URLParam(r, "app_id")
	app, err := workshop.ParseAppID(raw)
	if err != nil {
		if known, ok := workshop.KnownApps[raw]; ok {
			return known, true
		}
		http.Error(w, "Invalid app ID", http.StatusBadRequest)
		return 0, false
	}
	return app, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
