package campaign

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"campaign-console/pkg/db/pagination"
	"campaign-console/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Handler exposes the campaign service over REST. Handlers attach domain
// errors with c.Error; the error middleware maps them to status codes.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	v1 := r.Group("/api/v1")

	v1.GET("/campaign-types", h.ListTypes)
	v1.GET("/channels", h.ListChannels)

	campaigns := v1.Group("/campaigns")
	campaigns.POST("", h.Create)
	campaigns.GET("", h.List)
	campaigns.POST("/process-scheduled", h.ProcessScheduled)
	campaigns.GET("/:id", h.Get)
	campaigns.PATCH("/:id", h.Update)
	campaigns.DELETE("/:id", h.Delete)
	campaigns.POST("/:id/type", h.ChangeType)
	campaigns.POST("/:id/clone", h.Clone)
	campaigns.POST("/:id/schedule", h.Schedule)
	campaigns.POST("/:id/publish", h.Publish)
	campaigns.POST("/:id/stop", h.Stop)
	campaigns.POST("/:id/unschedule", h.Unschedule)
	campaigns.POST("/:id/reschedule", h.Reschedule)
	campaigns.POST("/:id/transition", h.Transition)
	campaigns.GET("/:id/report", h.Report)
}

func campaignID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errutil.BadRequest("campaign id must be an integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) ListTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": ListTypes()})
}

func (h *Handler) ListChannels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.svc.Channels()})
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	created, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	campaign, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *Handler) List(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(errutil.BadRequest("invalid query parameters", errutil.WithErr(err)))
		return
	}
	var page pagination.Params
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", errutil.WithErr(err)))
		return
	}

	campaigns, info, err := h.svc.List(c.Request.Context(), filter, page)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "pageInfo": info})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type changeTypeRequest struct {
	Type   Type            `json:"type" binding:"required"`
	Preset *TemplatePreset `json:"preset"`
}

func (h *Handler) ChangeType(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var req changeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	updated, err := h.svc.ChangeType(c.Request.Context(), id, req.Type, req.Preset)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type cloneRequest struct {
	Title string `json:"title"`
}

func (h *Handler) Clone(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var req cloneRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	cloned, err := h.svc.Clone(c.Request.Context(), id, req.Title)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, cloned)
}

type scheduleRequest struct {
	StartDate time.Time  `json:"startDate" binding:"required"`
	EndDate   *time.Time `json:"endDate"`
}

func (h *Handler) Schedule(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	updated, err := h.svc.Schedule(c.Request.Context(), id, req.StartDate, req.EndDate)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type publishRequest struct {
	PublishDate *time.Time `json:"publishDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (h *Handler) Publish(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	updated, err := h.svc.Publish(c.Request.Context(), id, req.PublishDate, req.EndDate)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) Stop(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	updated, err := h.svc.Stop(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) Unschedule(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	updated, err := h.svc.Unschedule(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type rescheduleRequest struct {
	PublishDate time.Time `json:"publishDate" binding:"required"`
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	updated, err := h.svc.Reschedule(c.Request.Context(), id, req.PublishDate)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type transitionRequest struct {
	NewState string `json:"newState" binding:"required"`
}

func (h *Handler) Transition(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	newState, known := ParseState(req.NewState)
	if !known {
		c.Error(errutil.BadRequest(fmt.Sprintf("unknown state %q", req.NewState)))
		return
	}

	updated, err := h.svc.Transition(c.Request.Context(), id, newState)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ProcessScheduled(c *gin.Context) {
	transitioned, err := h.svc.ProcessScheduled(c.Request.Context(), time.Now())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activated": transitioned, "count": len(transitioned)})
}

func (h *Handler) Report(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	report, err := h.svc.Report(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}

	if err := h.svc.SoftDelete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
