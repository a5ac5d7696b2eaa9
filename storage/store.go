// Package storage keeps named checkpoint blobs, on local disk or in Couchbase.
package storage

import "github.com/pkg/errors"

var (
	ErrNotFound    = errors.New("checkpoint not found")
	ErrInvalidName = errors.New("invalid checkpoint name")
)

type Store interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
	Close() error
}
