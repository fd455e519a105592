package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
)

type meetingService interface {
	ListMeetings(ctx context.Context, params application.ListMeetingsParams) (application.MeetingPage, error)
	GetMeeting(ctx context.Context, principal application.Principal, id string) (application.Meeting, error)
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, error)
}

// MeetingAPIHandler exposes the meetings table as JSON for scripts and the
// transcription pipeline's operators.
type MeetingAPIHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

func NewMeetingAPIHandler(service meetingService, logger *slog.Logger) *MeetingAPIHandler {
	base := defaultLogger(logger)
	return &MeetingAPIHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingAPIHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MeetingAPIHandler", operation, attrs...)
}

func (h *MeetingAPIHandler) principal(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   statusMessage(http.StatusUnauthorized),
		})
	}
	return principal, ok
}

func (h *MeetingAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	query := r.URL.Query()
	page := queryInt(query.Get("page"))
	limit := queryInt(query.Get("limit"))

	result, err := h.service.ListMeetings(ctx, application.ListMeetingsParams{
		Principal: principal,
		Page:      page,
		PageSize:  limit,
	})
	if err != nil {
		h.log(ctx, "List", "page", page, "limit", limit).ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	response := meetingListResponse{
		Meetings:   make([]meetingDTO, 0, len(result.Meetings)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages(),
	}
	for _, meeting := range result.Meetings {
		response.Meetings = append(response.Meetings, toMeetingDTO(meeting))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, response)
}

func (h *MeetingAPIHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if strings.TrimSpace(id) == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	meeting, err := h.service.GetMeeting(ctx, principal, id)
	if err != nil {
		h.log(ctx, "Get", "meeting_id", id).WarnContext(ctx, "failed to load meeting", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toMeetingDTO(meeting))
}

func (h *MeetingAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "Create", "principal_id", principal.UserID)

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode meeting request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput()
	if vErr != nil {
		h.responder.handleServiceError(ctx, w, vErr)
		return
	}

	meeting, err := h.service.CreateMeeting(ctx, application.CreateMeetingParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Location", "/api/meetings/"+meeting.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, toMeetingDTO(meeting))
}

type meetingRequest struct {
	Title       string  `json:"title"`
	MeetingDate string  `json:"meeting_date"`
	Transcript  *string `json:"transcript"`
}

func (req meetingRequest) toInput() (application.MeetingInput, error) {
	input := application.MeetingInput{Title: req.Title}
	if raw := strings.TrimSpace(req.MeetingDate); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return input, application.NewValidationError(map[string]string{
				"meeting_date": "meeting_date must be an RFC 3339 timestamp",
			})
		}
		input.MeetingDate = at
	}
	if req.Transcript != nil && strings.TrimSpace(*req.Transcript) != "" {
		input.Transcript = req.Transcript
	}
	return input, nil
}

type meetingDTO struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"owner_id"`
	Title       string  `json:"title"`
	MeetingDate string  `json:"meeting_date"`
	Transcript  *string `json:"transcript"`
	CreatedAt   string  `json:"created_at"`
}

func toMeetingDTO(meeting application.Meeting) meetingDTO {
	dto := meetingDTO{
		ID:          meeting.ID,
		OwnerID:     meeting.OwnerID,
		Title:       meeting.Title,
		MeetingDate: meeting.MeetingDate.UTC().Format(time.RFC3339),
		CreatedAt:   meeting.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if meeting.HasTranscript() {
		dto.Transcript = meeting.Transcript
	}
	return dto
}

type meetingListResponse struct {
	Meetings   []meetingDTO `json:"meetings"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
}

func queryInt(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}
