package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/logger"
	"github.com/getiva/trackd/record"
	"github.com/getiva/trackd/resolver"
	"github.com/getiva/trackd/storage"
)

// Handler carries the collaborators behind the HTTP routes.
type Handler struct {
	records record.Store
	chain   *storage.Chain
	files   *resolver.Resolver
	log     *logger.Logger
	now     func() time.Time
}

// NewHandler wires the API handlers.
func NewHandler(records record.Store, chain *storage.Chain, files *resolver.Resolver, log *logger.Logger) *Handler {
	return &Handler{
		records: records,
		chain:   chain,
		files:   files,
		log:     log.WithComponent("api"),
		now:     time.Now,
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login checks credentials and returns the account's role.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("username and password are required"))
		return
	}

	u, err := h.records.GetUser(c.Request.Context(), req.Username)
	if err != nil || !record.VerifyPassword(u.Password, req.Password) {
		// Same answer for unknown user and wrong password.
		RespondWithError(c, apperrors.Unauthorized())
		return
	}

	h.log.Info("login succeeded", logger.Fields(logger.FieldUsername, u.Username))
	RespondOK(c, loginResponse{Username: u.Username, Role: u.Role})
}

// ---------------------------------------------------------------------------
// Applications
// ---------------------------------------------------------------------------

// ListApplications returns one page of the user's applications, newest
// first.
func (h *Handler) ListApplications(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		RespondWithError(c, apperrors.InvalidInput("username query parameter is required"))
		return
	}
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)

	apps, total, err := h.records.ListApplications(c.Request.Context(), username, page, limit)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	meta := &Meta{Page: page, PageSize: limit, Total: total}
	if limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	RespondOKWithMeta(c, apps, meta)
}

// GetApplication returns a single application by id.
func (h *Handler) GetApplication(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		RespondWithError(c, apperrors.InvalidInput("username query parameter is required"))
		return
	}

	app, err := h.records.GetApplication(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, app)
}

// CreateApplication accepts a multipart form with the application fields
// and the resume file, stores the file through the backend chain, and
// records the application. Nothing is recorded when ingestion fails.
func (h *Handler) CreateApplication(c *gin.Context) {
	username := c.PostForm("username")
	company := c.PostForm("company")
	if username == "" || company == "" {
		RespondWithError(c, apperrors.InvalidInput("username and company are required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondWithError(c, apperrors.InvalidInput("a resume file is required"))
		return
	}
	if !storage.IsDocument(fileHeader.Filename) {
		RespondWithError(c, apperrors.InvalidInput("only pdf, doc, and docx files are accepted"))
		return
	}

	content, err := readUpload(fileHeader)
	if err != nil {
		RespondWithError(c, apperrors.Internal(err))
		return
	}

	storedName := h.storedFilename(username, fileHeader.Filename)
	ref, err := h.chain.Ingest(c.Request.Context(), content, storedName)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	app := &record.Application{
		Username:       username,
		Company:        company,
		JobDescription: c.PostForm("jobdescription"),
		Filename:       storedName,
		Timestamp:      h.now(),
		DownloadLink:   ref.DownloadURL,
		ViewLink:       ref.ViewURL,
		Status:         record.DefaultStatus,
	}
	if _, err := h.records.CreateApplication(c.Request.Context(), app); err != nil {
		RespondWithError(c, err)
		return
	}

	h.log.Info("application created", logger.Fields(
		logger.FieldUsername, username,
		logger.FieldFilename, storedName,
		logger.FieldBackend, string(ref.Kind),
	))
	RespondCreated(c, app)
}

// UpdateApplication applies a partial update. When a replacement file is
// attached it is ingested first and the stored links are replaced; the old
// file is left on its backend.
func (h *Handler) UpdateApplication(c *gin.Context) {
	username := c.PostForm("username")
	if username == "" {
		username = c.Query("username")
	}
	if username == "" {
		RespondWithError(c, apperrors.InvalidInput("username is required"))
		return
	}

	upd := record.ApplicationUpdate{
		Company:        formField(c, "company"),
		JobDescription: formField(c, "jobdescription"),
		Status:         formField(c, "status"),
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		if !storage.IsDocument(fileHeader.Filename) {
			RespondWithError(c, apperrors.InvalidInput("only pdf, doc, and docx files are accepted"))
			return
		}
		content, readErr := readUpload(fileHeader)
		if readErr != nil {
			RespondWithError(c, apperrors.Internal(readErr))
			return
		}

		storedName := h.storedFilename(username, fileHeader.Filename)
		ref, ingestErr := h.chain.Ingest(c.Request.Context(), content, storedName)
		if ingestErr != nil {
			RespondWithError(c, ingestErr)
			return
		}
		upd.Filename = &storedName
		upd.DownloadLink = &ref.DownloadURL
		upd.ViewLink = &ref.ViewURL
	}

	app, err := h.records.UpdateApplication(c.Request.Context(), username, c.Param("id"), upd)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, app)
}

// DeleteApplication removes an application record. The stored file remains
// on its backend; orphans are logged, not chased.
func (h *Handler) DeleteApplication(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		RespondWithError(c, apperrors.InvalidInput("username query parameter is required"))
		return
	}

	id := c.Param("id")
	deleted, err := h.records.DeleteApplication(c.Request.Context(), username, id)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if !deleted {
		RespondWithError(c, apperrors.NotFound("application", id))
		return
	}

	h.log.Info("application deleted, stored file kept", logger.Fields(
		logger.FieldUsername, username,
		"id", id,
	))
	RespondNoContent(c)
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// ViewFile resolves a stored reference for inline viewing.
func (h *Handler) ViewFile(c *gin.Context) {
	h.renderReference(c, resolver.IntentView)
}

// DownloadFile resolves a stored reference as an attachment.
func (h *Handler) DownloadFile(c *gin.Context) {
	h.renderReference(c, resolver.IntentDownload)
}

func (h *Handler) renderReference(c *gin.Context, intent resolver.Intent) {
	plan, err := h.files.Resolve(c.Request.Context(), c.Query("ref"), intent)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	switch plan.Kind {
	case resolver.PlanServeBytes:
		c.Header("Content-Disposition",
			fmt.Sprintf("%s; filename=%q", plan.Disposition, plan.Filename))
		c.Data(http.StatusOK, plan.MIMEType, plan.Content)
	case resolver.PlanRedirect:
		c.Redirect(http.StatusFound, plan.Location)
	case resolver.PlanEmbedViewer:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(plan.HTML))
	default:
		RespondWithError(c, apperrors.Internal(fmt.Errorf("unknown render plan %q", plan.Kind)))
	}
}

// ---------------------------------------------------------------------------
// Users (admin)
// ---------------------------------------------------------------------------

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type userResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ListUsers returns every account without password material.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.records.ListUsers(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{Username: u.Username, Role: u.Role})
	}
	RespondOK(c, out)
}

// CreateUser registers a new account with a hashed password.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("username and password are required"))
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}

	hashed, err := record.HashPassword(req.Password)
	if err != nil {
		RespondWithError(c, apperrors.Internal(err))
		return
	}

	u := &record.User{Username: req.Username, Password: hashed, Role: req.Role}
	if err := h.records.CreateUser(c.Request.Context(), u); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondCreated(c, userResponse{Username: u.Username, Role: u.Role})
}

// UpdateUser changes an account's password or role.
func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("invalid request body"))
		return
	}

	upd := record.UserUpdate{Role: req.Role}
	if req.Password != nil {
		hashed, err := record.HashPassword(*req.Password)
		if err != nil {
			RespondWithError(c, apperrors.Internal(err))
			return
		}
		upd.Password = &hashed
	}

	u, err := h.records.UpdateUser(c.Request.Context(), c.Param("username"), upd)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, userResponse{Username: u.Username, Role: u.Role})
}

// DeleteUser removes an account. The admin account cannot be removed.
func (h *Handler) DeleteUser(c *gin.Context) {
	username := c.Param("username")
	if username == "admin" {
		RespondWithError(c, apperrors.InvalidInput("the admin account cannot be deleted"))
		return
	}

	deleted, err := h.records.DeleteUser(c.Request.Context(), username)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if !deleted {
		RespondWithError(c, apperrors.NotFound("user", username))
		return
	}
	RespondNoContent(c)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// storedFilename builds the name a resume is stored under. The upload time
// makes names unique per user; the original name keeps them recognizable.
func (h *Handler) storedFilename(username, original string) string {
	base := filepath.Base(original)
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%s_%s_%s", username, h.now().Format("20060102_150405"), base)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func formField(c *gin.Context, name string) *string {
	if v, ok := c.GetPostForm(name); ok {
		return &v
	}
	return nil
}
