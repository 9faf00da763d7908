package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"registrationintake/internal/domain"
	"registrationintake/internal/metrics"
)

const pdfContentType = "application/pdf"

type registrationService struct {
	repo         domain.RegistrationRepository
	files        domain.FileStore
	emailService domain.EmailService
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewRegistrationService creates a RegistrationService. emailService and m may be nil.
func NewRegistrationService(
	repo domain.RegistrationRepository,
	files domain.FileStore,
	emailService domain.EmailService,
	m *metrics.Metrics,
	logger *slog.Logger,
) domain.RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &registrationService{
		repo:         repo,
		files:        files,
		emailService: emailService,
		metrics:      m,
		logger:       logger,
	}
}

func (s *registrationService) Create(ctx context.Context, fields domain.RegistrationFields, upload *domain.Upload) (*domain.Registration, error) {
	exists, err := s.repo.ExistsByEmail(ctx, fields.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		s.metrics.IncrementRejected(metrics.ReasonDuplicateEmail)
		return nil, duplicateEmailError(fields.Email)
	}

	// Nothing is persisted until the upload has passed validation.
	if upload.Empty() {
		upload = nil
	} else if err := validatePDF(upload); err != nil {
		s.metrics.IncrementRejected(metrics.ReasonInvalidFile)
		return nil, err
	}

	reg := domain.NewRegistration(fields, time.Now().UTC().Truncate(time.Microsecond))
	if err := s.repo.Save(ctx, reg); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			s.metrics.IncrementRejected(metrics.ReasonDuplicateEmail)
			return nil, duplicateEmailError(fields.Email)
		}
		return nil, fmt.Errorf("save registration: %w", err)
	}

	// The storage name embeds the ID, so the file is written after the first save.
	if upload != nil {
		name := storageName(upload.FileName, reg.ID)
		if err := s.files.Save(ctx, name, upload.Content); err != nil {
			return nil, fmt.Errorf("could not store file %s: %w", name, err)
		}
		reg.AttachFile(name, upload.FileName)
		if err := s.repo.Save(ctx, reg); err != nil {
			return nil, fmt.Errorf("update registration file: %w", err)
		}
		s.metrics.IncrementAttachmentsStored()
	}

	s.metrics.IncrementCreated()
	s.sendConfirmation(ctx, reg)
	return reg, nil
}

func (s *registrationService) GetByID(ctx context.Context, id int64) (*domain.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, registrationNotFound(id)
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *registrationService) List(ctx context.Context) ([]*domain.Registration, error) {
	regs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

func (s *registrationService) LoadAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	reg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reg.HasAttachment() {
		return nil, domain.NewNotFoundError("No file associated with this registration")
	}
	att, err := s.files.Open(ctx, *reg.FilePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	return att, nil
}

func (s *registrationService) OriginalFileName(ctx context.Context, id int64) (string, error) {
	reg, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if reg.OriginalFileName == nil {
		return domain.DefaultDownloadName, nil
	}
	return *reg.OriginalFileName, nil
}

// sendConfirmation is best effort; failures are logged, never returned.
func (s *registrationService) sendConfirmation(ctx context.Context, reg *domain.Registration) {
	if s.emailService == nil {
		return
	}
	data := &domain.RegistrationEmailData{
		Email:          reg.Email,
		Name:           reg.Name,
		RegistrationID: reg.ID,
	}
	if reg.OriginalFileName != nil {
		data.AttachmentName = *reg.OriginalFileName
	}
	if err := s.emailService.SendRegistrationConfirmation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "registration confirmation not sent", "registration_id", reg.ID, "err", err)
	}
}

func validatePDF(u *domain.Upload) error {
	if u.ContentType != pdfContentType {
		return domain.NewValidationError("Only PDF files are allowed. Received: %s", u.ContentType)
	}
	if !strings.HasSuffix(strings.ToLower(u.FileName), ".pdf") {
		return domain.NewValidationError("File must have a .pdf extension")
	}
	return nil
}

// storageName builds "{base}_{id}{ext}" from the upload's file name. Any
// directory components of the original name are dropped.
func storageName(original string, id int64) string {
	name := original
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	stem, ext := name, ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		stem, ext = name[:i], name[i:]
	}
	return fmt.Sprintf("%s_%d%s", stem, id, ext)
}

func duplicateEmailError(email string) error {
	return domain.NewValidationError("Email already exists: %s", email)
}

func registrationNotFound(id int64) error {
	return domain.NewNotFoundError("Registration not found with id: %d", id)
}
