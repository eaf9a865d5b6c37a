package treatment

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/handler"
	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/service/treatment"
	"github.com/suminyol/ayursutra-api/pkg/httputil"
)

type Handler struct {
	service treatment.Service
}

func NewHandler(service treatment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.POST("/generate-ai-plan", h.GenerateAIPlan)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.GET("/:id/progress", h.Progress)
	r.PUT("/:id/start", h.Start)
	r.PUT("/:id/complete-stage", h.CompleteStage)
	r.PUT("/:id/complete", h.Complete)
	r.POST("/:id/sessions", h.AddSession)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateTreatmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Create(c.Request.Context(), handler.Actor(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "treatment created", t)
}

func (h *Handler) GenerateAIPlan(c *gin.Context) {
	var req model.GenerateAIPlanRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	plan, err := h.service.GenerateAIPlan(c.Request.Context(), handler.Actor(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, plan)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Get(c.Request.Context(), handler.Actor(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.TreatmentFilters{
		Status: model.TreatmentStatus(c.Query("status")),
	}
	if v := c.Query("patient_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filters.PatientID = id
		}
	}
	if v := c.Query("stage_index"); v != "" {
		if idx, err := strconv.Atoi(v); err == nil {
			filters.StageIndex = &idx
		}
	}
	if v := c.Query("page"); v != "" {
		filters.Page, _ = strconv.Atoi(v)
	}
	if v := c.Query("page_size"); v != "" {
		filters.PageSize, _ = strconv.Atoi(v)
	}

	treatments, total, err := h.service.List(c.Request.Context(), handler.Actor(c), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, treatments, filters.Page, filters.Limit(), total)
}

func (h *Handler) Start(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Start(c.Request.Context(), handler.Actor(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "treatment started", t)
}

func (h *Handler) CompleteStage(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.CompleteStageRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.CompleteStage(c.Request.Context(), handler.Actor(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "stage completed", t)
}

func (h *Handler) AddSession(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.AddSessionRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.AddSession(c.Request.Context(), handler.Actor(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "session recorded", t)
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Complete(c.Request.Context(), handler.Actor(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "treatment completed", t)
}

func (h *Handler) Progress(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	progress, err := h.service.Progress(c.Request.Context(), handler.Actor(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, progress)
}
