package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/casesim/internal/model"
)

const maxCasesUpload = 8 << 20

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResults()
	if err != nil {
		slog.Error("failed to list results", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []model.CaseResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetResult(chi.URLParam(r, "sessionID"))
	if err != nil {
		slog.Error("failed to get result", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if res == nil {
		writeError(w, r, http.StatusNotFound, "ResultNotFound")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type importResponse struct {
	Name     string `json:"name"`
	Imported int    `json:"imported"`
}

// handleImportCases stores a JSON array of cases sent as the request body.
// The name query parameter identifies the upload for change detection.
func (h *Handler) handleImportCases(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCasesUpload))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	n, err := h.store.ImportCases(name, data)
	if err != nil {
		slog.Warn("case import rejected", "name", name, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "ImportFailed", Message: err.Error()})
		return
	}
	user := model.UserFromContext(r.Context())
	slog.Info("cases uploaded", "name", name, "count", n, "by", user.Username)
	writeJSON(w, http.StatusOK, importResponse{Name: name, Imported: n})
}

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
}

type userResponse struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Role        model.UserRole `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if req.Role == "" {
		req.Role = model.UserRoleInstructor
	}
	if req.Role != model.UserRoleInstructor && req.Role != model.UserRoleAdmin {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		writeError(w, r, http.StatusConflict, "UserExists")
		return
	}

	id, err := h.store.CreateUser(req.Username, req.DisplayName, req.Password, req.Role)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{
		ID:          id,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
}
