package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gauntlet/internal/api/middleware"
	"gauntlet/internal/app/service"
	"gauntlet/internal/common"

	"github.com/go-chi/chi/v5"
)

type JudgeHandler struct {
	submissionService *service.SubmissionService
}

func NewJudgeHandler(ss *service.SubmissionService) *JudgeHandler {
	return &JudgeHandler{submissionService: ss}
}

func (h *JudgeHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/{questionID}/run", h.runCode)             // POST /api/v1/questions/{questionID}/run
	r.Post("/{questionID}/submit", h.submit)           // POST /api/v1/questions/{questionID}/submit
	r.Get("/{questionID}/submissions", h.listHistory)  // GET /api/v1/questions/{questionID}/submissions
}

type runCodeRequest struct {
	Language    string  `json:"language"`
	Code        string  `json:"code"`
	CustomInput *string `json:"custom_input,omitempty"`
}

func (h *JudgeHandler) runCode(w http.ResponseWriter, r *http.Request) {
	participantID, ok := middleware.GetParticipantIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing participant context")
		return
	}

	var req runCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.Language == "" || req.Code == "" {
		common.RespondWithError(w, http.StatusBadRequest, "language and code are required")
		return
	}

	results, err := h.submissionService.RunVisible(r.Context(), participantID, chi.URLParam(r, "questionID"), req.Language, req.Code, req.CustomInput)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, results)
}

type submitRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (h *JudgeHandler) submit(w http.ResponseWriter, r *http.Request) {
	participantID, ok := middleware.GetParticipantIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing participant context")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.Language == "" || req.Code == "" {
		common.RespondWithError(w, http.StatusBadRequest, "language and code are required")
		return
	}

	result, err := h.submissionService.Submit(r.Context(), participantID, chi.URLParam(r, "questionID"), req.Language, req.Code)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *JudgeHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	participantID, ok := middleware.GetParticipantIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing participant context")
		return
	}

	limit, offset := 20, 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	subs, total, err := h.submissionService.History(r.Context(), participantID, chi.URLParam(r, "questionID"), limit, offset)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"total":       total,
	})
}
