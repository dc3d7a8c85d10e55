package timetable

import (
	"context"
	"net/http"

	"github.com/glasgow-exams/timetable-ingest/internal/auth"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler exposes the upload and read-only endpoints of spec.md §6.
type Handler struct {
	orchestrator *Orchestrator
	repo         Repository
}

func NewHandler(orchestrator *Orchestrator, repo Repository) *Handler {
	return &Handler{orchestrator: orchestrator, repo: repo}
}

// Upload handles POST /api/uploads: a multipart form with field "file".
// The response echoes the parsed payload plus, when ingest ran, a nested
// ingest summary, per spec.md §6.
func (h *Handler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": ErrNoFileUploaded.Error()})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": ErrParseFailed.Error()})
	}
	defer src.Close()

	payload, err := ReadUpload(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
	}

	resp := map[string]any{
		"status": "ok",
		"type":   payloadTypeLabel(payload.Kind),
		"file":   fileHeader.Filename,
	}
	if payload.Kind == PayloadVenue {
		resp["days"] = payload.VenueDays
	} else {
		resp["rows"] = payload.Rows
	}

	if payload.Kind == PayloadUnknown {
		resp["ingest"] = &IngestSummary{Handled: false, Errors: []string{"Could not classify the uploaded sheet."}}
		return c.JSON(http.StatusOK, resp)
	}

	summary, err := h.orchestrator.ProcessUpload(context.WithoutCancel(c.Request().Context()), fileHeader.Filename, uploaderID(c), payload)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": err.Error()})
	}

	resp["ingest"] = summary
	resp["records_created"] = summary.Created
	resp["records_updated"] = summary.Updated
	return c.JSON(http.StatusOK, resp)
}

func payloadTypeLabel(kind PayloadKind) any {
	switch kind {
	case PayloadExam:
		return "Exam"
	case PayloadProvisions:
		return "Provisions"
	case PayloadVenue:
		return "Venue"
	default:
		return nil
	}
}

func uploaderID(c echo.Context) *primitive.ObjectID {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil || claims.CMSID == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(claims.CMSID)
	if err != nil {
		return nil
	}
	return &id
}

// Health handles GET /healthz.
func (h *Handler) Health(c echo.Context) error {
	if _, err := h.repo.ListExams(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "error",
			"services": map[string]any{
				"database": map[string]string{"status": "error", "error": err.Error()},
			},
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListExams handles GET /api/exams.
func (h *Handler) ListExams(c echo.Context) error {
	exams, err := h.repo.ListExams(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	out := make([]map[string]any, 0, len(exams))
	for _, exam := range exams {
		out = append(out, h.serializeExam(c, &exam))
	}
	return c.JSON(http.StatusOK, out)
}

// GetExam handles GET /api/exams/:code.
func (h *Handler) GetExam(c echo.Context) error {
	exam, err := h.repo.FindExamByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if exam == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Exam not found"})
	}
	return c.JSON(http.StatusOK, h.serializeExam(c, exam))
}

func (h *Handler) serializeExam(c echo.Context, exam *Exam) map[string]any {
	evs, _ := h.repo.FindExamVenuesByExam(c.Request().Context(), exam.ID)
	venues := make([]map[string]any, 0, len(evs))
	for _, ev := range evs {
		venues = append(venues, map[string]any{
			"examvenue_id":           ev.ID.Hex(),
			"exam_name":              exam.ExamName,
			"venue_name":             ev.VenueName,
			"start_time":             ev.StartTime,
			"exam_length":            ev.ExamLength,
			"core":                   ev.Core,
			"provision_capabilities": ev.ProvisionCapabilities,
		})
	}
	return map[string]any{
		"course_code":    exam.CourseCode,
		"exam_name":      exam.ExamName,
		"exam_type":      exam.ExamType,
		"no_students":    exam.NoStudents,
		"exam_school":    exam.ExamSchool,
		"school_contact": exam.SchoolContact,
		"exam_date":      exam.ExamDate,
		"exam_venues":    venues,
	}
}

// ListVenues handles GET /api/venues.
func (h *Handler) ListVenues(c echo.Context) error {
	venues, err := h.repo.ListVenues(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, venues)
}

// GetVenue handles GET /api/venues/:name.
func (h *Handler) GetVenue(c echo.Context) error {
	venue, err := h.repo.FindVenueByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if venue == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Venue not found"})
	}
	return c.JSON(http.StatusOK, venue)
}
