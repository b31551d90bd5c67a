// Package archive stores image files by key in three namespaces: original
// prize images, their obscured teasers and generated collages.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Namespace string

const (
	Originals Namespace = "img"
	Teasers   Namespace = "hidden_img"
	Collages  Namespace = "collages"
)

var (
	ErrNotFound   = errors.New("archive: object not found")
	ErrInvalidKey = errors.New("archive: invalid key")
)

type Archive interface {
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)
	Put(ctx context.Context, ns Namespace, key string, data []byte) error
	Exists(ctx context.Context, ns Namespace, key string) (bool, error)
	// List returns the keys of a namespace in lexical order.
	List(ctx context.Context, ns Namespace) ([]string, error)
}

// ValidateKey accepts plain file names only.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || filepath.Base(key) != key || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
