package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"issuetracker/database"
	"issuetracker/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	msgUnexpected     = "unexpected error occurred"
	msgRequiredFields = "required field(s) missing"
	msgCouldNotCreate = "could not create"
	msgMissingID      = "missing _id"
	msgNoUpdateFields = "no update field(s) sent"
	msgCouldNotUpdate = "could not update"
	msgCouldNotDelete = "could not delete"
	msgInvalidBody    = "invalid request body"

	resultUpdated = "successfully updated"
	resultDeleted = "successfully deleted"
)

// IssueHandler serves the /api/issues/:project collection.
type IssueHandler struct {
	store  database.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewIssueHandler(store database.Store, logger zerolog.Logger) *IssueHandler {
	return &IssueHandler{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (h *IssueHandler) Register(r gin.IRoutes) {
	r.GET("/api/issues/:project", h.ListIssues)
	r.POST("/api/issues/:project", h.CreateIssue)
	r.PUT("/api/issues/:project", h.UpdateIssue)
	r.DELETE("/api/issues/:project", h.DeleteIssue)
}

// timestamp returns the current time at the precision every backend keeps.
func (h *IssueHandler) timestamp() time.Time {
	return h.now().UTC().Truncate(time.Millisecond)
}

// ListIssues handles GET. Every allow-listed query parameter becomes an
// equality condition; unknown parameters are ignored.
func (h *IssueHandler) ListIssues(c *gin.Context) {
	project := c.Param("project")

	filter, ok := buildFilter(project, c.Request.URL.Query())
	if !ok {
		// A value that cannot be parsed for its field never matches.
		c.JSON(http.StatusOK, []models.Issue{})
		return
	}

	issues, err := h.store.FindIssues(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "FindIssues failed", project)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgUnexpected})
		return
	}

	c.JSON(http.StatusOK, issues)
}

func (h *IssueHandler) CreateIssue(c *gin.Context) {
	project := c.Param("project")

	var req models.CreateIssueRequest
	if err := c.ShouldBind(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) || errors.Is(err, io.EOF) {
			c.JSON(http.StatusOK, models.ErrorResponse{Error: msgRequiredFields})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidBody})
		return
	}

	now := h.timestamp()
	issue := models.Issue{
		ID:         database.NewObjectID(),
		Project:    project,
		IssueTitle: req.IssueTitle,
		IssueText:  req.IssueText,
		CreatedBy:  req.CreatedBy,
		AssignedTo: req.AssignedTo,
		StatusText: req.StatusText,
		Open:       true,
		CreatedOn:  now,
		UpdatedOn:  now,
	}

	if err := h.store.InsertIssue(c.Request.Context(), &issue); err != nil {
		h.fail(c, err, "InsertIssue failed", project)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgCouldNotCreate, Project: project})
		return
	}

	h.logger.Info().Str("project", project).Str("id", issue.ID.Hex()).Msg("issue created")
	c.JSON(http.StatusOK, issue)
}

// UpdateIssue handles PUT. Checks run in order: missing id, nothing to
// change, malformed id, then the conditional update itself.
func (h *IssueHandler) UpdateIssue(c *gin.Context) {
	project := c.Param("project")

	var req models.UpdateIssueRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidBody})
		return
	}

	if req.ID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgMissingID})
		return
	}

	changes := req.Changes()
	if len(changes) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgNoUpdateFields, ID: req.ID})
		return
	}

	id, err := database.ParseObjectID(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgCouldNotUpdate, ID: req.ID})
		return
	}

	update := database.Update{Fields: changes, UpdatedOn: h.timestamp()}
	err = h.store.UpdateIssue(c.Request.Context(), project, id, update)
	switch {
	case errors.Is(err, database.ErrIssueNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: msgCouldNotUpdate, ID: req.ID})
		return
	case err != nil:
		h.fail(c, err, "UpdateIssue failed", project)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgCouldNotUpdate, ID: req.ID})
		return
	}

	h.logger.Info().Str("project", project).Str("id", req.ID).Int("fields", len(changes)).Msg("issue updated")
	c.JSON(http.StatusOK, models.ResultResponse{Result: resultUpdated, ID: req.ID})
}

// DeleteIssue handles DELETE. The id is read from the body, falling back to
// the query string.
func (h *IssueHandler) DeleteIssue(c *gin.Context) {
	project := c.Param("project")

	var req models.DeleteIssueRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidBody})
		return
	}
	if req.ID == "" {
		req.ID = c.Query(models.FieldID)
	}

	if req.ID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgMissingID})
		return
	}

	id, err := database.ParseObjectID(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgCouldNotDelete, ID: req.ID})
		return
	}

	err = h.store.DeleteIssue(c.Request.Context(), project, id)
	switch {
	case errors.Is(err, database.ErrIssueNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: msgCouldNotDelete, ID: req.ID})
		return
	case err != nil:
		h.fail(c, err, "DeleteIssue failed", project)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgCouldNotDelete, ID: req.ID})
		return
	}

	h.logger.Info().Str("project", project).Str("id", req.ID).Msg("issue deleted")
	c.JSON(http.StatusOK, models.ResultResponse{Result: resultDeleted, ID: req.ID})
}

// fail logs a store error and attaches it to the request for RequestLogger.
func (h *IssueHandler) fail(c *gin.Context, err error, msg, project string) {
	_ = c.Error(err)
	h.logger.Error().Err(err).Str("project", project).Msg(msg)
}

// buildFilter turns query parameters into a store filter. It reports false
// when a supplied value cannot be parsed for its field's type. Empty values
// for non-text fields are treated as not supplied.
func buildFilter(project string, query url.Values) (database.Filter, bool) {
	filter := database.Filter{Project: project}

	for _, name := range models.FilterableFields {
		if !query.Has(name) {
			continue
		}

		raw := query.Get(name)
		value, err := models.ParseFieldValue(name, raw)
		if err != nil {
			if raw == "" {
				continue
			}
			return database.Filter{}, false
		}

		filter.Conditions = append(filter.Conditions, models.Field{Name: name, Value: value})
	}

	return filter, true
}
