package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/permission"
	"solis/internal/sanitize"
	"solis/internal/storage"

	"github.com/google/uuid"
)

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	List(ctx context.Context, department string) ([]model.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UploadInput struct {
	Title       string
	Department  string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type DocumentService struct {
	docs    DocumentStore
	objects storage.Store
	log     *logger.Logger
	now     func() time.Time
}

func NewDocumentService(docs DocumentStore, objects storage.Store, log *logger.Logger) *DocumentService {
	return &DocumentService{docs: docs, objects: objects, log: log.Named("documents"), now: time.Now}
}

// DocumentPath is the canonical object path of an uploaded document.
func DocumentPath(department string, id uuid.UUID, fileName string) string {
	return fmt.Sprintf("documents/%s/%s-%s", department, id, fileName)
}

// Upload stores the blob, then the metadata. When the metadata insert fails
// the blob is removed again on a best-effort basis.
func (s *DocumentService) Upload(ctx context.Context, actor *model.User, in UploadInput) (*model.Document, error) {
	name := path.Base(strings.ReplaceAll(in.FileName, "\\", "/"))
	if name == "" || name == "." || name == "/" || in.Body == nil {
		return nil, invalid("file", "el archivo es obligatorio")
	}
	title := sanitize.Text(in.Title)
	if title == "" {
		title = name
	}
	dept := in.Department
	if dept == "" {
		dept = actor.Department
	}
	if !permission.ValidDepartment(dept) {
		return nil, invalid("department", "departamento desconocido")
	}

	doc := &model.Document{
		ID:         uuid.New(),
		Title:      title,
		Type:       in.ContentType,
		Size:       in.Size,
		Department: dept,
		CreatedBy:  actor.Snapshot(),
		CreatedAt:  s.now().UTC(),
	}
	doc.StoragePath = DocumentPath(dept, doc.ID, name)

	url, err := s.objects.Put(ctx, storage.Object{Path: doc.StoragePath, ContentType: in.ContentType, Body: in.Body})
	if err != nil {
		return nil, err
	}
	doc.URL = url

	if err := s.docs.Create(ctx, doc); err != nil {
		if delErr := s.objects.Delete(ctx, doc.StoragePath); delErr != nil {
			s.log.Warn().Err(delErr).Str("path", doc.StoragePath).Msg("orphaned document object")
		}
		return nil, err
	}
	s.log.Info().Str("document_id", doc.ID.String()).Str("path", doc.StoragePath).Msg("document uploaded")
	return doc, nil
}

// Delete removes the blob and the metadata. Blob failures are logged only, a
// blob that is already gone included; the metadata delete is always attempted
// and its error is the one returned.
func (s *DocumentService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !allowed(actor, permission.DeleteTasks) && doc.CreatedBy.ID != actor.ID.String() {
		return ErrForbidden
	}

	err = s.objects.Delete(ctx, doc.StoragePath)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		s.log.Warn().Str("document_id", id.String()).Str("path", doc.StoragePath).Msg("backing object already removed")
	case err != nil:
		s.log.Error().Err(err).Str("document_id", id.String()).Str("path", doc.StoragePath).Msg("object delete failed")
	}

	return s.docs.Delete(ctx, id)
}

func (s *DocumentService) List(ctx context.Context, department string) ([]model.Document, error) {
	return s.docs.List(ctx, department)
}

// NewestFirst orders documents for display; the store returns them unsorted.
func NewestFirst(a, b model.Document) bool {
	return a.CreatedAt.After(b.CreatedAt)
}
