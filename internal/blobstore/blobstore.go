package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"image_ratings/internal/models"
)

// ErrObjectExists is returned by Put when the key is already taken.
var ErrObjectExists = errors.New("object already exists")

// Store is an object store addressed by key. Put never overwrites.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

func NewStore(cfg models.BlobConfig, publicBaseURL string) (Store, error) {
	switch cfg.Type {
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	case "local":
		s, err := NewLocalStore(cfg.StoragePath, publicBaseURL+"/files")
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("blobstore.NewStore: unsupported type %q", cfg.Type)
	}
}

const tokenLength = 10

// NewObjectKey returns "<unix millis>-<token><ext>" where ext is the
// extension of filename.
func NewObjectKey(filename string, now time.Time) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
	ext := filepath.Ext(filepath.Base(filename))
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + token + ext
}
