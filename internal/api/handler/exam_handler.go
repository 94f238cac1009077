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

type ExamHandler struct {
	progressionService *service.ProgressionService
	questionService    *service.QuestionService
	submissionService  *service.SubmissionService
}

func NewExamHandler(ps *service.ProgressionService, qs *service.QuestionService, ss *service.SubmissionService) *ExamHandler {
	return &ExamHandler{progressionService: ps, questionService: qs, submissionService: ss}
}

func (h *ExamHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listLevels)                        // GET /api/v1/levels
	r.Post("/{examID}/join", h.joinExam)            // POST /api/v1/levels/{examID}/join
	r.Get("/{examID}/questions", h.listQuestions)   // GET /api/v1/levels/{examID}/questions
	r.Get("/{examID}/standings", h.listStandings)   // GET /api/v1/levels/{examID}/standings
}

func (h *ExamHandler) listLevels(w http.ResponseWriter, r *http.Request) {
	participantID, ok := middleware.GetParticipantIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing participant context")
		return
	}

	levels, err := h.progressionService.ListLevels(r.Context(), participantID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, levels)
}

type joinExamRequest struct {
	Code string `json:"code"`
}

func (h *ExamHandler) joinExam(w http.ResponseWriter, r *http.Request) {
	participantID, ok := middleware.GetParticipantIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing participant context")
		return
	}

	var req joinExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	status, err := h.progressionService.JoinExam(r.Context(), participantID, chi.URLParam(r, "examID"), req.Code)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, status)
}

func (h *ExamHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	participantID, ok := middleware.GetParticipantIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing participant context")
		return
	}

	questions, err := h.questionService.ListQuestions(r.Context(), participantID, chi.URLParam(r, "examID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, questions)
}

func (h *ExamHandler) listStandings(w http.ResponseWriter, r *http.Request) {
	participantID, ok := middleware.GetParticipantIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing participant context")
		return
	}

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	standings, err := h.submissionService.Standings(r.Context(), participantID, chi.URLParam(r, "examID"), limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, standings)
}
