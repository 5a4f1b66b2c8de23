package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"
)

type ProcedureHandler struct {
	procedureService service.ProcedureService
	jwtSecret        []byte
}

func NewProcedureHandler(procedureService service.ProcedureService, jwtSecret []byte) *ProcedureHandler {
	return &ProcedureHandler{procedureService: procedureService, jwtSecret: jwtSecret}
}

func (h *ProcedureHandler) RegisterRoutes(router *gin.RouterGroup) {
	procedures := router.Group("/api/procedures", middleware.RequireAuth(h.jwtSecret))
	{
		procedures.POST("", h.Submit)
		procedures.GET("", h.List)
		procedures.GET("/:id/document/:file", h.Download)
		procedures.POST("/:id/state", h.TransitionState)
		procedures.POST("/:id/resend", h.Resend)
	}
}

// Submit registers a new procedure
// @Summary      Submit a procedure
// @Description  Creates a version-1 procedure with up to 5 encrypted attachments
// @Tags         procedures
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  response.Response{data=model.Procedure}
// @Router       /api/procedures [post]
func (h *ProcedureHandler) Submit(c *gin.Context) {
	req, err := parseSubmitForm(c)
	if err != nil {
		fail(c, err)
		return
	}

	rec, err := h.procedureService.Submit(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage(http.StatusCreated, "Procedure registered successfully", rec))
}

// List returns the caller's procedures, or all of them for officers
// @Summary      List procedures
// @Tags         procedures
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Procedure}
// @Router       /api/procedures [get]
func (h *ProcedureHandler) List(c *gin.Context) {
	records, err := h.procedureService.List(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, records))
}

// Download decrypts and returns one attached document
// @Summary      Download a document
// @Tags         procedures
// @Produce      application/octet-stream
// @Security     BearerAuth
// @Param        id    path  string  true  "Procedure id"
// @Param        file  path  string  true  "Document storage name"
// @Router       /api/procedures/{id}/document/{file} [get]
func (h *ProcedureHandler) Download(c *gin.Context) {
	result, err := h.procedureService.Download(c.Request.Context(), middleware.Principal(c), c.Param("id"), c.Param("file"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.DisplayName))
	c.Data(http.StatusOK, "application/octet-stream", result.Data)
}

type transitionRequest struct {
	State model.Status `json:"state" binding:"required"`
}

// TransitionState advances a procedure's lifecycle state
// @Summary      Change procedure state
// @Tags         procedures
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string             true  "Procedure id"
// @Param        payload  body  transitionRequest  true  "Target state"
// @Success      200  {object}  response.Response{data=model.Procedure}
// @Router       /api/procedures/{id}/state [post]
func (h *ProcedureHandler) TransitionState(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "state is required"))
		return
	}

	rec, err := h.procedureService.Transition(c.Request.Context(), middleware.Principal(c), c.Param("id"), req.State)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage(http.StatusOK, "State updated", rec))
}

// Resend creates a new version of a rejected procedure
// @Summary      Resend a rejected procedure
// @Tags         procedures
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Procedure id"
// @Success      200  {object}  response.Response{data=model.Procedure}
// @Router       /api/procedures/{id}/resend [post]
func (h *ProcedureHandler) Resend(c *gin.Context) {
	req, err := parseSubmitForm(c)
	if err != nil {
		fail(c, err)
		return
	}

	rec, err := h.procedureService.Resend(c.Request.Context(), middleware.Principal(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage(http.StatusOK, "Your procedure has been resent and is pending review", rec))
}

// parseSubmitForm reads the multipart fields and the `docs` uploads shared
// by Submit and Resend.
func parseSubmitForm(c *gin.Context) (service.SubmitRequest, error) {
	req := service.SubmitRequest{
		Type: c.PostForm("type"),
		Fields: model.Fields{
			Name:        c.PostForm("name"),
			NationalID:  c.PostForm("national_id"),
			Phone:       c.PostForm("phone"),
			Degree:      c.PostForm("degree"),
			Institution: c.PostForm("institution"),
			Campus:      c.PostForm("campus"),
		},
	}

	form, err := c.MultipartForm()
	if err != nil {
		// No multipart body at all is fine; field validation happens downstream.
		return req, nil
	}
	for _, fh := range form.File["docs"] {
		f, err := fh.Open()
		if err != nil {
			return req, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return req, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		req.Files = append(req.Files, service.FileUpload{Name: fh.Filename, Data: data})
	}
	return req, nil
}
