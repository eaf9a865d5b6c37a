package treatmentplan

import (
	"github.com/gin-gonic/gin"

	"github.com/suminyol/ayursutra-api/internal/handler"
	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/service/treatmentplan"
	"github.com/suminyol/ayursutra-api/pkg/httputil"
)

type Handler struct {
	service treatmentplan.Service
}

func NewHandler(service treatmentplan.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("/patient/:patientId", h.GetForPatient)
	r.PUT("/:planId/feedback", h.AddFeedback)
	r.PUT("/:planId", h.Update)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateTreatmentPlanRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	plan, err := h.service.Create(c.Request.Context(), handler.Actor(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "treatment plan created", plan)
}

func (h *Handler) GetForPatient(c *gin.Context) {
	patientID, ok := handler.ParseID(c, "patientId")
	if !ok {
		return
	}

	plan, err := h.service.GetForPatient(c.Request.Context(), handler.Actor(c), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, plan)
}

func (h *Handler) AddFeedback(c *gin.Context) {
	planID, ok := handler.ParseID(c, "planId")
	if !ok {
		return
	}
	var req model.AddFeedbackRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	plan, err := h.service.AddFeedback(c.Request.Context(), handler.Actor(c), planID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "feedback recorded", plan)
}

func (h *Handler) Update(c *gin.Context) {
	planID, ok := handler.ParseID(c, "planId")
	if !ok {
		return
	}
	var req model.UpdateTreatmentPlanRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	plan, err := h.service.Update(c.Request.Context(), handler.Actor(c), planID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "treatment plan updated", plan)
}
