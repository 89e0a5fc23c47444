package handler

import (
	"errors"
	"fmt"
	"net/http"

	personapp "github.com/erp/personportal/internal/application/person"
	"github.com/erp/personportal/internal/infrastructure/logger"
	"github.com/erp/personportal/internal/interfaces/http/middleware"
	"github.com/erp/personportal/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// Browser-facing routes.
const (
	RouteList        = "/Person/GetAllPerson"
	RouteListMulti   = "/Person/GetAllPersonMulti"
	RouteEdit        = "/Person/EditPerson"
	RouteSave        = "/Person/Save"
	RouteReturnJSON  = "/Person/ReturnJson"
	RouteDelete      = "/Person/Delete"
	RouteExportExcel = "/Person/ExportExcel"
	RouteDeleteBatch = "/Person/DeleteSelected"
)

// User-visible messages.
const (
	MsgSaved        = "Person Saved Successfully"
	MsgUpdated      = "Person Updated Successfully"
	MsgDeleted      = "Person Deleted Successfully"
	MsgBatchDeleted = "Selected persons deleted successfully."
)

// maxFormMemory caps the multipart form kept in memory.
const maxFormMemory = 32 << 20

// PersonIDQuery binds the PersonID query parameter.
type PersonIDQuery struct {
	PersonID int `form:"PersonID" binding:"min=0"`
}

// PersonHandler serves the Person pages
type PersonHandler struct {
	BaseHandler
	service *personapp.Service
}

// NewPersonHandler creates a new PersonHandler
func NewPersonHandler(service *personapp.Service) *PersonHandler {
	return &PersonHandler{service: service}
}

// Index redirects the site root to the list page.
func (h *PersonHandler) Index(c *gin.Context) {
	h.RedirectTo(c, RouteList)
}

// GetAllPerson renders the list page shell. Rows are loaded by the page
// itself from ReturnJson.
func (h *PersonHandler) GetAllPerson(c *gin.Context) {
	h.Render(c, http.StatusOK, view.PageList, "Persons", nil)
}

// ReturnJson answers the list as a bare JSON array in upstream order.
func (h *PersonHandler) ReturnJson(c *gin.Context) {
	people, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, personapp.ToPersonResponses(people))
}

// GetAllPersonMulti renders the list with a checkbox per row for batch
// deletion.
func (h *PersonHandler) GetAllPersonMulti(c *gin.Context) {
	people, err := h.service.List(c.Request.Context())
	if err != nil {
		h.failed(c, middleware.FlashError, "list persons", err)
		people = nil
	}
	h.Render(c, http.StatusOK, view.PageListMulti, "Delete persons", personapp.ToPersonResponses(people))
}

// Delete removes one record and renders the list page directly, with the
// outcome message visible on that render.
func (h *PersonHandler) Delete(c *gin.Context) {
	var q PersonIDQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.FlashError(c, middleware.FlashError, middleware.ValidationSummary(err))
		h.Render(c, http.StatusOK, view.PageList, "Persons", nil)
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), q.PersonID)
	switch {
	case err != nil:
		h.failed(c, middleware.FlashError, "delete person", err)
	case deleted:
		h.Flash(c, middleware.FlashMessage, MsgDeleted)
	}
	h.Render(c, http.StatusOK, view.PageList, "Persons", nil)
}

// EditPerson renders the add/edit form, blank for identifier 0 or a record
// the Person API does not return.
func (h *PersonHandler) EditPerson(c *gin.Context) {
	var q PersonIDQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.FlashError(c, middleware.FlashError, middleware.ValidationSummary(err))
		q.PersonID = 0
	}

	p, err := h.service.Get(c.Request.Context(), q.PersonID)
	if err != nil {
		h.failed(c, middleware.FlashError, "load person", err)
	}

	title := "Add Person"
	if !p.IsNew() {
		title = "Edit Person"
	}
	h.Render(c, http.StatusOK, view.PageAddEdit, title, personapp.ToPersonResponse(p))
}

// Save creates the posted record when PersonID is 0, otherwise updates it,
// then always redirects to the list page.
func (h *PersonHandler) Save(c *gin.Context) {
	defer h.RedirectTo(c, RouteList)

	req, err := bindSaveRequest(c)
	if err != nil {
		h.FlashError(c, middleware.FlashError, middleware.ValidationSummary(err))
		return
	}

	outcome, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		h.failed(c, middleware.FlashError, "save person", err)
		return
	}
	switch outcome {
	case personapp.SaveCreated:
		h.Flash(c, middleware.FlashMessage, MsgSaved)
	case personapp.SaveUpdated:
		h.Flash(c, middleware.FlashMessage, MsgUpdated)
	}
}

// bindSaveRequest maps the posted form the way ShouldBind does, but trims the
// text fields before validating them.
func bindSaveRequest(c *gin.Context) (personapp.SavePersonRequest, error) {
	var req personapp.SavePersonRequest
	if err := c.Request.ParseForm(); err != nil {
		return req, err
	}
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, err
	}
	if err := binding.MapFormWithTag(&req, c.Request.Form, "form"); err != nil {
		return req, err
	}
	req = req.Normalize()
	return req, binding.Validator.ValidateStruct(&req)
}

// ExportExcel streams every record as an xlsx attachment.
func (h *PersonHandler) ExportExcel(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// DeleteSelected deletes every posted selectedPersons identifier and
// redirects to the multi-select list.
func (h *PersonHandler) DeleteSelected(c *gin.Context) {
	defer h.RedirectTo(c, RouteListMulti)

	var req personapp.DeleteSelectedRequest
	if err := c.ShouldBind(&req); err != nil {
		h.FlashError(c, middleware.FlashErrorMessage, middleware.ValidationSummary(err))
		return
	}

	if _, err := h.service.DeleteSelected(c.Request.Context(), req.SelectedPersons); err != nil {
		if errors.Is(err, personapp.ErrNoSelection) {
			h.Flash(c, middleware.FlashErrorMessage, personapp.ErrNoSelection.Message)
			return
		}
		h.failed(c, middleware.FlashErrorMessage, "delete selected persons", err)
		return
	}
	h.Flash(c, middleware.FlashSuccessMessage, MsgBatchDeleted)
}

// failed logs err and queues it as a user-visible message under key.
func (h *PersonHandler) failed(c *gin.Context, key, action string, err error) {
	logger.L(c.Request.Context()).Error("Person API call failed", zap.String("action", action), zap.Error(err))
	_ = c.Error(err)
	h.FlashError(c, key, err.Error())
}
