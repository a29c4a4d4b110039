package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
)

const downloadURLFormat = "https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s"

// Firebase stores objects in the app's Firebase Storage bucket and hands out
// token-protected download URLs the web console can open directly.
type Firebase struct {
	bucket *gcs.BucketHandle
	name   string
}

func NewFirebase(ctx context.Context, app *firebase.App, bucketName string) (*Firebase, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketName, err)
	}
	return &Firebase{bucket: bucket, name: bucketName}, nil
}

func (f *Firebase) Put(ctx context.Context, obj Object) (string, error) {
	token := uuid.NewString()

	err := write(ctx, func(ctx context.Context) objectWriter {
		w := f.bucket.Object(obj.Path).NewWriter(ctx)
		w.ContentType = obj.ContentType
		w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}
		return w
	}, obj.Body)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", obj.Path, err)
	}
	return DownloadURL(f.name, obj.Path, token), nil
}

type objectWriter interface {
	io.Writer
	Close() error
}

// write streams body into the writer open returns. A failed copy cancels the
// writer's context before closing, which aborts the upload instead of
// committing a truncated object.
func write(ctx context.Context, open func(context.Context) objectWriter, body io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := open(ctx)
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (f *Firebase) Delete(ctx context.Context, path string) error {
	err := f.bucket.Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// DownloadURL builds the Firebase download link for an object path.
func DownloadURL(bucket, path, token string) string {
	return fmt.Sprintf(downloadURLFormat, bucket, url.PathEscape(path), token)
}
