package controllers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"registrationintake/internal/delivery/http/helpers"
	"registrationintake/internal/domain"
)

// DefaultMaxUploadBytes bounds a create request when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// multipartMemory is how much of a multipart body is buffered in memory before spilling to temp files.
const multipartMemory = 1 << 20

var requiredFormFields = []string{"name", "email", "phoneNum", "grp", "subGrp"}

// CreateRegistrationResponse is the 201 body for POST /api/registration.
type CreateRegistrationResponse struct {
	Message          string  `json:"message"`
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	PhoneNum         string  `json:"phoneNum"`
	Grp              string  `json:"grp"`
	SubGrp           string  `json:"subGrp"`
	FilePath         *string `json:"filePath"`
	OriginalFileName *string `json:"originalFileName"`
}

// RegistrationController handles the /api/registration endpoints.
type RegistrationController struct {
	Logger         *slog.Logger
	Service        domain.RegistrationService
	MaxUploadBytes int64
}

// NewRegistrationController creates a RegistrationController. maxUploadBytes <= 0 uses DefaultMaxUploadBytes.
func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService, maxUploadBytes int64) *RegistrationController {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &RegistrationController{
		Logger:         logger,
		Service:        svc,
		MaxUploadBytes: maxUploadBytes,
	}
}

// ListRegistrations godoc
// @Summary List registrations
// @Description Returns every registration in store order.
// @Tags registration
// @Produce json
// @Success 200 {array} domain.Registration
// @Failure 500 {object} helpers.ErrorResponse
// @Router /api/registration [get]
func (c *RegistrationController) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := c.Service.List(r.Context())
	if err != nil {
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, regs)
}

// CreateRegistration godoc
// @Summary Submit a registration
// @Description Creates a registration from multipart form fields with an optional PDF attachment. The email must be unique.
// @Tags registration
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param email formData string true "Email"
// @Param phoneNum formData string true "Phone number"
// @Param grp formData string true "Group"
// @Param subGrp formData string true "Sub-group"
// @Param file formData file false "PDF attachment"
// @Success 201 {object} controllers.CreateRegistrationResponse
// @Failure 400 {object} helpers.ErrorResponse "duplicate email, bad file, or malformed request"
// @Failure 500 {object} helpers.ErrorResponse
// @Router /api/registration [post]
func (c *RegistrationController) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	if !helpers.ParseMultipart(w, r, c.MaxUploadBytes, multipartMemory) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	values, missing := helpers.RequireFormValues(r.MultipartForm, requiredFormFields...)
	if missing != "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Required parameter '%s' is not present", missing))
		return
	}
	fields := domain.RegistrationFields{
		Name:     values["name"],
		Email:    values["email"],
		PhoneNum: values["phoneNum"],
		Grp:      values["grp"],
		SubGrp:   values["subGrp"],
	}

	var upload *domain.Upload
	if fh := helpers.FormFile(r.MultipartForm, "file"); fh != nil {
		f, err := fh.Open()
		if err != nil {
			c.internalError(w, r, fmt.Errorf("open uploaded file: %w", err))
			return
		}
		defer f.Close()
		upload = &domain.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		}
	}

	reg, err := c.Service.Create(r.Context(), fields, upload)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			helpers.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		c.internalError(w, r, err)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, CreateRegistrationResponse{
		Message:          "Registration submitted successfully",
		ID:               reg.ID,
		Name:             reg.Name,
		Email:            reg.Email,
		PhoneNum:         reg.PhoneNum,
		Grp:              reg.Grp,
		SubGrp:           reg.SubGrp,
		FilePath:         reg.FilePath,
		OriginalFileName: reg.OriginalFileName,
	})
}

// GetRegistration godoc
// @Summary Get a registration
// @Tags registration
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} domain.Registration
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Failure 500 {object} helpers.ErrorResponse
// @Router /api/registration/{id} [get]
func (c *RegistrationController) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.ParseID(r, "id")
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	reg, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Registration not found")
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, reg)
}

// DownloadFile godoc
// @Summary Download a registration's PDF
// @Tags registration
// @Produce application/pdf
// @Param id path int true "Registration ID"
// @Success 200 {file} file
// @Failure 400 {object} helpers.ErrorResponse
// @Failure 404 {object} helpers.ErrorResponse "no registration, no file, or file unreadable"
// @Failure 500 {object} helpers.ErrorResponse
// @Router /api/registration/{id}/download [get]
func (c *RegistrationController) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.ParseID(r, "id")
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	att, err := c.Service.LoadAttachment(r.Context(), id)
	if err != nil {
		c.downloadError(w, r, err)
		return
	}
	defer att.Content.Close()

	name, err := c.Service.OriginalFileName(r.Context(), id)
	if err != nil {
		c.downloadError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(name))
	if att.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, att.Content); err != nil {
		c.Logger.WarnContext(r.Context(), "download interrupted", "path", r.URL.Path, "err", err)
	}
}

func (c *RegistrationController) downloadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		helpers.WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	c.internalError(w, r, err)
}

func (c *RegistrationController) internalError(w http.ResponseWriter, r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.MsgInternalError)
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")

func contentDisposition(filename string) string {
	return `attachment; filename="` + dispositionEscaper.Replace(filename) + `"`
}
