package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"registrationintake/internal/delivery/http/helpers"
	"registrationintake/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	createReg    *domain.Registration
	createErr    error
	lastFields   domain.RegistrationFields
	lastUpload   *domain.Upload
	lastBody     string
	getReg       *domain.Registration
	getErr       error
	listRegs     []*domain.Registration
	listErr      error
	attachment   *domain.Attachment
	attachErr    error
	originalName string
	nameErr      error
}

func (f *fakeRegistrationService) Create(ctx context.Context, fields domain.RegistrationFields, upload *domain.Upload) (*domain.Registration, error) {
	f.lastFields = fields
	f.lastUpload = upload
	if upload != nil {
		b, _ := io.ReadAll(upload.Content)
		f.lastBody = string(b)
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createReg, nil
}

func (f *fakeRegistrationService) GetByID(ctx context.Context, id int64) (*domain.Registration, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getReg, nil
}

func (f *fakeRegistrationService) List(ctx context.Context) ([]*domain.Registration, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listRegs, nil
}

func (f *fakeRegistrationService) LoadAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	return f.attachment, nil
}

func (f *fakeRegistrationService) OriginalFileName(ctx context.Context, id int64) (string, error) {
	if f.nameErr != nil {
		return "", f.nameErr
	}
	return f.originalName, nil
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

type formFile struct {
	name        string
	contentType string
	body        string
}

func multipartRequest(t *testing.T, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "http://test/api/registration", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{"name": "Ada", "email": "ada@x.com", "phoneNum": "555", "grp": "A", "subGrp": "A1"}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body helpers.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error
}

func strPtr(s string) *string { return &s }

func TestRegistrationController_CreateRegistration(t *testing.T) {
	saved := &domain.Registration{
		ID: 1, Name: "Ada", Email: "ada@x.com", PhoneNum: "555", Grp: "A", SubGrp: "A1",
		FilePath: strPtr("report_1.pdf"), OriginalFileName: strPtr("report.pdf"),
	}

	t.Run("created with file", func(t *testing.T) {
		fake := &fakeRegistrationService{createReg: saved}
		ctrl := NewRegistrationController(testLogger, fake, 0)
		req := multipartRequest(t, validFields(), &formFile{"report.pdf", "application/pdf", "%PDF-1.7"})
		rr := httptest.NewRecorder()

		ctrl.CreateRegistration(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Registration submitted successfully", resp["message"])
		assert.Equal(t, float64(1), resp["id"])
		assert.Equal(t, "ada@x.com", resp["email"])
		assert.Equal(t, "555", resp["phoneNum"])
		assert.Equal(t, "A1", resp["subGrp"])
		assert.Equal(t, "report_1.pdf", resp["filePath"])
		assert.Equal(t, "report.pdf", resp["originalFileName"])

		assert.Equal(t, domain.RegistrationFields{Name: "Ada", Email: "ada@x.com", PhoneNum: "555", Grp: "A", SubGrp: "A1"}, fake.lastFields)
		require.NotNil(t, fake.lastUpload)
		assert.Equal(t, "report.pdf", fake.lastUpload.FileName)
		assert.Equal(t, "application/pdf", fake.lastUpload.ContentType)
		assert.Equal(t, int64(len("%PDF-1.7")), fake.lastUpload.Size)
		assert.Equal(t, "%PDF-1.7", fake.lastBody)
	})

	t.Run("created without file has null file fields", func(t *testing.T) {
		fake := &fakeRegistrationService{createReg: &domain.Registration{ID: 2, Email: "bob@x.com"}}
		ctrl := NewRegistrationController(testLogger, fake, 0)
		rr := httptest.NewRecorder()

		ctrl.CreateRegistration(rr, multipartRequest(t, validFields(), nil))

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Contains(t, resp, "filePath")
		assert.Nil(t, resp["filePath"])
		assert.Nil(t, resp["originalFileName"])
		assert.Nil(t, fake.lastUpload)
	})

	t.Run("empty values are accepted", func(t *testing.T) {
		fake := &fakeRegistrationService{createReg: &domain.Registration{ID: 3}}
		ctrl := NewRegistrationController(testLogger, fake, 0)
		fields := map[string]string{"name": "", "email": "", "phoneNum": "", "grp": "", "subGrp": ""}
		rr := httptest.NewRecorder()

		ctrl.CreateRegistration(rr, multipartRequest(t, fields, nil))

		require.Equal(t, http.StatusCreated, rr.Code)
	})

	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		fake       *fakeRegistrationService
		wantStatus int
		wantError  string
	}{
		{
			name: "duplicate email",
			req:  func(t *testing.T) *http.Request { return multipartRequest(t, validFields(), nil) },
			fake: &fakeRegistrationService{
				createErr: domain.NewValidationError("Email already exists: ada@x.com"),
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Email already exists: ada@x.com",
		},
		{
			name: "bad file type",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, validFields(), &formFile{"report.docx", "application/pdf", "x"})
			},
			fake: &fakeRegistrationService{
				createErr: domain.NewValidationError("File must have a .pdf extension"),
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "File must have a .pdf extension",
		},
		{
			name: "missing required field",
			req: func(t *testing.T) *http.Request {
				f := validFields()
				delete(f, "subGrp")
				return multipartRequest(t, f, nil)
			},
			fake:       &fakeRegistrationService{},
			wantStatus: http.StatusBadRequest,
			wantError:  "Required parameter 'subGrp' is not present",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "http://test/api/registration", strings.NewReader(`{"name":"Ada"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			fake:       &fakeRegistrationService{},
			wantStatus: http.StatusBadRequest,
			wantError:  "Request must be multipart/form-data",
		},
		{
			name:       "service error",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, validFields(), nil) },
			fake:       &fakeRegistrationService{createErr: assert.AnError},
			wantStatus: http.StatusInternalServerError,
			wantError:  helpers.MsgInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewRegistrationController(testLogger, tt.fake, 0)
			rr := httptest.NewRecorder()

			ctrl.CreateRegistration(rr, tt.req(t))

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantError, decodeError(t, rr))
		})
	}
}

func TestRegistrationController_ListRegistrations(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeRegistrationService{listRegs: []*domain.Registration{
			{ID: 1, Name: "Ada", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 2, Name: "Bob"},
		}}
		ctrl := NewRegistrationController(testLogger, fake, 0)
		rr := httptest.NewRecorder()

		ctrl.ListRegistrations(rr, httptest.NewRequest(http.MethodGet, "http://test/api/registration", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var regs []domain.Registration
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&regs))
		require.Len(t, regs, 2)
		assert.Equal(t, "Ada", regs[0].Name)
	})

	t.Run("empty list encodes as array", func(t *testing.T) {
		fake := &fakeRegistrationService{listRegs: []*domain.Registration{}}
		ctrl := NewRegistrationController(testLogger, fake, 0)
		rr := httptest.NewRecorder()

		ctrl.ListRegistrations(rr, httptest.NewRequest(http.MethodGet, "http://test/api/registration", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("service error", func(t *testing.T) {
		fake := &fakeRegistrationService{listErr: assert.AnError}
		ctrl := NewRegistrationController(testLogger, fake, 0)
		rr := httptest.NewRecorder()

		ctrl.ListRegistrations(rr, httptest.NewRequest(http.MethodGet, "http://test/api/registration", nil))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, helpers.MsgInternalError, decodeError(t, rr))
	})
}

func TestRegistrationController_GetRegistration(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		fake       *fakeRegistrationService
		wantStatus int
		wantError  string
	}{
		{
			name:       "found",
			id:         "1",
			fake:       &fakeRegistrationService{getReg: &domain.Registration{ID: 1, Name: "Ada", Email: "ada@x.com"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			id:         "9",
			fake:       &fakeRegistrationService{getErr: domain.NewNotFoundError("Registration not found with id: 9")},
			wantStatus: http.StatusNotFound,
			wantError:  "Registration not found",
		},
		{
			name:       "zero id is looked up",
			id:         "0",
			fake:       &fakeRegistrationService{getErr: domain.NewNotFoundError("Registration not found with id: 0")},
			wantStatus: http.StatusNotFound,
			wantError:  "Registration not found",
		},
		{
			name:       "invalid id",
			id:         "abc",
			fake:       &fakeRegistrationService{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid id",
		},
		{
			name:       "service error",
			id:         "1",
			fake:       &fakeRegistrationService{getErr: assert.AnError},
			wantStatus: http.StatusInternalServerError,
			wantError:  helpers.MsgInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewRegistrationController(testLogger, tt.fake, 0)
			req := httptest.NewRequest(http.MethodGet, "http://test/api/registration/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			rr := httptest.NewRecorder()

			ctrl.GetRegistration(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rr))
				return
			}
			var reg domain.Registration
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&reg))
			assert.Equal(t, int64(1), reg.ID)
			assert.Equal(t, "ada@x.com", reg.Email)
		})
	}
}

func TestRegistrationController_DownloadFile(t *testing.T) {
	attachment := func(body string) *domain.Attachment {
		return &domain.Attachment{Content: io.NopCloser(strings.NewReader(body)), Size: int64(len(body))}
	}

	t.Run("streams pdf", func(t *testing.T) {
		fake := &fakeRegistrationService{attachment: attachment("%PDF-1.7 body"), originalName: "report.pdf"}
		ctrl := NewRegistrationController(testLogger, fake, 0)
		req := httptest.NewRequest(http.MethodGet, "http://test/api/registration/1/download", nil)
		req.SetPathValue("id", "1")
		rr := httptest.NewRecorder()

		ctrl.DownloadFile(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="report.pdf"`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, "13", rr.Header().Get("Content-Length"))
		assert.Equal(t, "%PDF-1.7 body", rr.Body.String())
	})

	tests := []struct {
		name       string
		fake       *fakeRegistrationService
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown registration",
			fake:       &fakeRegistrationService{attachErr: domain.NewNotFoundError("Registration not found with id: 1")},
			wantStatus: http.StatusNotFound,
			wantError:  "Registration not found with id: 1",
		},
		{
			name:       "no file",
			fake:       &fakeRegistrationService{attachErr: domain.NewNotFoundError("No file associated with this registration")},
			wantStatus: http.StatusNotFound,
			wantError:  "No file associated with this registration",
		},
		{
			name:       "file missing on disk",
			fake:       &fakeRegistrationService{attachErr: domain.NewNotFoundError("File not found: report_1.pdf")},
			wantStatus: http.StatusNotFound,
			wantError:  "File not found: report_1.pdf",
		},
		{
			name:       "infrastructure error",
			fake:       &fakeRegistrationService{attachErr: assert.AnError},
			wantStatus: http.StatusInternalServerError,
			wantError:  helpers.MsgInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewRegistrationController(testLogger, tt.fake, 0)
			req := httptest.NewRequest(http.MethodGet, "http://test/api/registration/1/download", nil)
			req.SetPathValue("id", "1")
			rr := httptest.NewRecorder()

			ctrl.DownloadFile(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rr))
		})
	}
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="file.pdf"`, contentDisposition("file.pdf"))
	assert.Equal(t, `attachment; filename="my \"quoted\" cv.pdf"`, contentDisposition(`my "quoted" cv.pdf`))
}
