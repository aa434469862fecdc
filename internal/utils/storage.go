package utils

import (
	"context"
	"io"
)

// Storage keeps uploaded files. Keys are the url_suffix values stored in the DB.
type Storage interface {
	SaveFile(ctx context.Context, subDir, originalFilename string, reader io.Reader) (string, error)
	DeleteFile(ctx context.Context, key string) error
	// URL returns a URL the client can fetch key from.
	URL(ctx context.Context, key string) (string, error)
}

var (
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*R2Storage)(nil)
)
