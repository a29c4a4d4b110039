package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrNotConfigured  = errors.New("object store not configured")
)

// Object describes a blob to upload.
type Object struct {
	Path        string
	ContentType string
	Body        io.Reader
}

// Store is a path-addressed blob store.
type Store interface {
	// Put uploads the object and returns a durable download URL.
	Put(ctx context.Context, obj Object) (string, error)
	// Delete removes the object at path; ErrObjectNotFound if it is gone.
	Delete(ctx context.Context, path string) error
}

// Unconfigured rejects every call; used when no bucket is set.
type Unconfigured struct{}

func (Unconfigured) Put(context.Context, Object) (string, error) { return "", ErrNotConfigured }
func (Unconfigured) Delete(context.Context, string) error        { return ErrNotConfigured }
