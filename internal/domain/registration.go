package domain

import (
	"context"
	"io"
	"time"
)

// DefaultDownloadName is used in Content-Disposition when a registration has
// no preserved original file name.
const DefaultDownloadName = "file.pdf"

// Registration is a user's submitted registration with an optional PDF attachment.
// swagger:model Registration
type Registration struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PhoneNum         string    `json:"phoneNum"`
	Grp              string    `json:"grp"`
	SubGrp           string    `json:"subGrp"`
	FilePath         *string   `json:"filePath"`
	OriginalFileName *string   `json:"originalFileName"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RegistrationFields holds the identifying details supplied on create.
// Only presence is checked; empty strings are accepted.
type RegistrationFields struct {
	Name     string
	Email    string
	PhoneNum string
	Grp      string
	SubGrp   string
}

// NewRegistration returns a Registration without an attachment. ID is set by the repository on save.
func NewRegistration(f RegistrationFields, createdAt time.Time) *Registration {
	return &Registration{
		Name:      f.Name,
		Email:     f.Email,
		PhoneNum:  f.PhoneNum,
		Grp:       f.Grp,
		SubGrp:    f.SubGrp,
		CreatedAt: createdAt,
	}
}

// AttachFile records the storage name and original name. Both are always set together.
func (r *Registration) AttachFile(storageName, originalName string) {
	r.FilePath = &storageName
	r.OriginalFileName = &originalName
}

// HasAttachment reports whether a stored file is referenced.
func (r *Registration) HasAttachment() bool {
	return r.FilePath != nil && *r.FilePath != ""
}

// Upload is a file supplied with a create request.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Empty reports whether the upload should be treated as absent.
func (u *Upload) Empty() bool {
	return u == nil || u.Size == 0
}

// Attachment is a readable handle to a stored file. Callers must close Content.
type Attachment struct {
	Content io.ReadCloser
	Size    int64
}

// RegistrationRepository defines storage operations for registrations.
// Save inserts when ID is zero (assigning the ID) and updates otherwise.
type RegistrationRepository interface {
	Save(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id int64) (*Registration, error)
	List(ctx context.Context) ([]*Registration, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// FileStore stores attachment blobs by name under a single root.
type FileStore interface {
	// Save creates or replaces the named file.
	Save(ctx context.Context, name string, r io.Reader) error
	// Open returns ErrNotFound if the file is missing or unreadable.
	Open(ctx context.Context, name string) (*Attachment, error)
}

// RegistrationService defines the registration intake workflow.
type RegistrationService interface {
	Create(ctx context.Context, fields RegistrationFields, upload *Upload) (*Registration, error)
	GetByID(ctx context.Context, id int64) (*Registration, error)
	List(ctx context.Context) ([]*Registration, error)
	LoadAttachment(ctx context.Context, id int64) (*Attachment, error)
	OriginalFileName(ctx context.Context, id int64) (string, error)
}
