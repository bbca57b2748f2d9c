// Package media validates staff uploads and stores them in object storage
// or hands them to the backend's media endpoint.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/domain/shared"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/infrastructure/storage"
	"github.com/digimall/admin-gateway/internal/infrastructure/telemetry"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Upload modes
const (
	ModeBackend = "backend"
	ModeS3      = "s3"
)

// sniffLength is how much of a file is inspected to detect its type
const sniffLength = 3072

// Media errors
var (
	ErrEmptyFile          = shared.NewDomainError("EMPTY_FILE", "Uploaded file is empty")
	ErrFileTooLarge       = shared.NewDomainError("FILE_TOO_LARGE", "Uploaded file exceeds the size limit")
	ErrUnsupportedType    = shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE", "File type is not allowed")
	ErrInvalidFolder      = shared.NewDomainError("INVALID_FOLDER", "Folder may only contain letters, digits, '-', '_' and '/'")
	ErrStoreNotConfigured = shared.NewDomainError("STORAGE_NOT_CONFIGURED", "Object storage is not configured")
)

var folderPattern = regexp.MustCompile(`^[A-Za-z0-9_\-/]+$`)

// Store is the object storage used in s3 mode
type Store interface {
	Put(ctx context.Context, obj storage.Object, body io.ReadSeeker) error
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Backend is the subset of the backend client used in backend mode
type Backend interface {
	UploadMedia(ctx context.Context, id identity.Identity, upload backend.MediaUpload) (*backend.RawResponse, error)
}

// Config contains upload limits
type Config struct {
	Mode             string
	MaxUploadSize    int64
	AllowedMIMETypes []string
	DefaultFolder    string
}

// UploadInput is a file received from a staff member
type UploadInput struct {
	Filename string
	Size     int64
	Folder   string
	File     io.ReadSeeker
}

// StoredObject is the result of an s3-mode upload
type StoredObject struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Filename    string    `json:"filename"`
}

// Outcome holds exactly one of Stored (s3 mode) or Relayed (backend mode)
type Outcome struct {
	Stored  *StoredObject
	Relayed *backend.RawResponse
}

// Service handles media uploads
type Service struct {
	store   Store
	backend Backend
	metrics *telemetry.GatewayMetrics
	config  Config
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithStore enables s3 mode storage
func WithStore(store Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithMetrics records upload sizes
func WithMetrics(m *telemetry.GatewayMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for key prefixes
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new media service
func NewService(backend Backend, config Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		config:  config,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the configured upload mode
func (s *Service) Mode() string {
	return s.config.Mode
}

// MaxUploadSize returns the per-file size limit in bytes
func (s *Service) MaxUploadSize() int64 {
	return s.config.MaxUploadSize
}

// Upload validates input and stores or forwards it on behalf of id
func (s *Service) Upload(ctx context.Context, id identity.Identity, input UploadInput) (*Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "media.upload",
		attribute.String(telemetry.SpanAttrMediaMode, s.config.Mode),
		attribute.Int64(telemetry.SpanAttrMediaSize, input.Size),
	)
	defer span.End()

	if input.Size <= 0 {
		return nil, ErrEmptyFile
	}
	if s.config.MaxUploadSize > 0 && input.Size > s.config.MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	folder, err := s.cleanFolder(input.Folder)
	if err != nil {
		return nil, err
	}

	mtype, err := detect(input.File)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !s.allowed(mtype) {
		logger.WithLogger(ctx, s.logger).Info("Rejected upload with disallowed type",
			zap.String("filename", input.Filename),
			zap.String("content_type", mtype.String()),
		)
		return nil, ErrUnsupportedType
	}
	contentType := baseType(mtype.String())

	var outcome *Outcome
	switch s.config.Mode {
	case ModeS3:
		outcome, err = s.putObject(ctx, input, folder, contentType, mtype.Extension())
	default:
		outcome, err = s.relay(ctx, id, input, folder, contentType)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordUpload(ctx, s.config.Mode, input.Size)
	return outcome, nil
}

func (s *Service) putObject(ctx context.Context, input UploadInput, folder, contentType, ext string) (*Outcome, error) {
	if s.store == nil {
		return nil, ErrStoreNotConfigured
	}

	key := path.Join(folder, s.now().UTC().Format("2006/01"), uuid.New().String()+ext)
	obj := storage.Object{Key: key, Size: input.Size, ContentType: contentType}
	if err := s.store.Put(ctx, obj, input.File); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	url, expiresAt, err := s.store.PresignGet(ctx, key, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to sign download URL: %w", err)
	}

	logger.WithLogger(ctx, s.logger).Info("Media stored",
		zap.String("key", key),
		zap.Int64("size", input.Size),
		zap.String("content_type", contentType),
	)
	return &Outcome{Stored: &StoredObject{
		Key:         key,
		URL:         url,
		ExpiresAt:   expiresAt,
		Size:        input.Size,
		ContentType: contentType,
		Filename:    input.Filename,
	}}, nil
}

func (s *Service) relay(ctx context.Context, id identity.Identity, input UploadInput, folder, contentType string) (*Outcome, error) {
	resp, err := s.backend.UploadMedia(ctx, id, backend.MediaUpload{
		Filename:    input.Filename,
		ContentType: contentType,
		Folder:      folder,
		Size:        input.Size,
		Content:     input.File,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Relayed: resp}, nil
}

// cleanFolder validates a caller-supplied folder, defaulting when empty
func (s *Service) cleanFolder(folder string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return s.config.DefaultFolder, nil
	}
	if !folderPattern.MatchString(folder) || strings.Contains(folder, "//") {
		return "", ErrInvalidFolder
	}
	return folder, nil
}

// allowed checks mtype against the configured list. Entries ending in "/*"
// match a whole top-level type.
func (s *Service) allowed(mtype *mimetype.MIME) bool {
	base := baseType(mtype.String())
	for _, allowed := range s.config.AllowedMIMETypes {
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(base, prefix+"/") {
				return true
			}
			continue
		}
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}

// detect sniffs the content type and rewinds the file
func detect(file io.ReadSeeker) (*mimetype.MIME, error) {
	mtype, err := mimetype.DetectReader(io.LimitReader(file, sniffLength))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}
	return mtype, nil
}

func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		return strings.TrimSpace(contentType[:i])
	}
	return contentType
}
