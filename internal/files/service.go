package files

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// ObjectStore abstracts the backing object storage. Satisfied by MinIOStore
// and by in-memory fakes in tests.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ProjectLoader resolves projects with member access enforced
type ProjectLoader interface {
	GetForAccess(ctx context.Context, userKey, projectKey string) (*models.Project, error)
}

// Service stores project files, namespaced per project. Any project member
// may read and write files.
type Service struct {
	store    ObjectStore
	projects ProjectLoader
}

func NewService(store ObjectStore, projects ProjectLoader) *Service {
	return &Service{store: store, projects: projects}
}

// objectKey builds the storage key for a file path within a project
func objectKey(projectKey, path string) string {
	return projectKey + "/" + strings.TrimPrefix(path, "/")
}

func validatePath(path string) error {
	if path == "" || strings.Contains(path, "..") {
		return fmt.Errorf("invalid file path %q: %w", path, apperr.ErrBadRequest)
	}
	return nil
}

// Upload stores a file under the project namespace
func (s *Service) Upload(ctx context.Context, userKey, projectKey, path string, reader io.Reader, size int64, contentType string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if _, err := s.projects.GetForAccess(ctx, userKey, projectKey); err != nil {
		return err
	}
	if err := s.store.Put(ctx, objectKey(projectKey, path), reader, size, contentType); err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	return nil
}

// Download returns a reader for the stored file. The caller must close it.
func (s *Service) Download(ctx context.Context, userKey, projectKey, path string) (io.ReadCloser, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if _, err := s.projects.GetForAccess(ctx, userKey, projectKey); err != nil {
		return nil, err
	}
	rc, err := s.store.Get(ctx, objectKey(projectKey, path))
	if err != nil {
		return nil, fmt.Errorf("file %s/%s: %w", projectKey, path, apperr.ErrNotFound)
	}
	return rc, nil
}

// List returns the files stored under the given path prefix, with the project
// namespace stripped from the returned keys.
func (s *Service) List(ctx context.Context, userKey, projectKey, prefix string) ([]ObjectInfo, error) {
	if _, err := s.projects.GetForAccess(ctx, userKey, projectKey); err != nil {
		return nil, err
	}
	infos, err := s.store.List(ctx, objectKey(projectKey, prefix))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	out := make([]ObjectInfo, 0, len(infos))
	for _, info := range infos {
		info.Key = strings.TrimPrefix(info.Key, projectKey+"/")
		out = append(out, info)
	}
	return out, nil
}

// Delete removes a stored file
func (s *Service) Delete(ctx context.Context, userKey, projectKey, path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if _, err := s.projects.GetForAccess(ctx, userKey, projectKey); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, objectKey(projectKey, path)); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// PresignedURL returns a short-lived direct download URL for a stored file
func (s *Service) PresignedURL(ctx context.Context, userKey, projectKey, path string, expires time.Duration) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	if _, err := s.projects.GetForAccess(ctx, userKey, projectKey); err != nil {
		return "", err
	}
	u, err := s.store.PresignedURL(ctx, objectKey(projectKey, path), expires)
	if err != nil {
		return "", fmt.Errorf("presign file: %w", err)
	}
	return u, nil
}
