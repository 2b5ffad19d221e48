package blobstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	pattern := regexp.MustCompile(`^1700000000123-[a-z0-9]{10}\.jpg$`)

	key := NewObjectKey("a.jpg", now)
	assert.Regexp(t, pattern, key)

	assert.NotEqual(t, key, NewObjectKey("a.jpg", now))
	assert.Regexp(t, `^\d+-[a-z0-9]{10}\.PNG$`, NewObjectKey("dir/photo.PNG", now))
	assert.Regexp(t, `^\d+-[a-z0-9]{10}$`, NewObjectKey("noext", now))
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/files/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "1-abc.jpg", []byte("data"), "image/jpeg"))

	got, err := os.ReadFile(filepath.Join(dir, "1-abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
	assert.Equal(t, "http://localhost:8080/files/1-abc.jpg", s.PublicURL("1-abc.jpg"))

	err = s.Put(ctx, "1-abc.jpg", []byte("other"), "image/jpeg")
	assert.ErrorIs(t, err, ErrObjectExists)
	got, _ = os.ReadFile(filepath.Join(dir, "1-abc.jpg"))
	assert.Equal(t, "data", string(got), "existing object must not be overwritten")

	require.NoError(t, s.Delete(ctx, "1-abc.jpg"))
	_, err = os.Stat(filepath.Join(dir, "1-abc.jpg"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Delete(ctx, "1-abc.jpg"))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x/files")
	require.NoError(t, err)

	assert.Error(t, s.Put(context.Background(), "../escape.jpg", []byte("x"), ""))
	assert.Error(t, s.Put(context.Background(), "", []byte("x"), ""))
}

type fakeSupabase struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	legacy  bool
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("apikey") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"invalid key"}`))
		return
	}

	switch r.Method {
	case http.MethodPost:
		key := r.URL.Path[len("/storage/v1/object/training-images/"):]
		if _, ok := f.objects[key]; ok && r.Header.Get("x-upsert") == "false" {
			if f.legacy {
				w.WriteHeader(http.StatusBadRequest)
			} else {
				w.WriteHeader(http.StatusConflict)
			}
			_, _ = w.Write([]byte(`{"error":"Duplicate","message":"The resource already exists"}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"Key":"training-images/` + key + `","Id":"` + key + `"}`))
	case http.MethodDelete:
		var req struct {
			Prefixes []string `json:"prefixes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, p := range req.Prefixes {
			delete(f.objects, p)
		}
		_, _ = w.Write([]byte(`[]`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestSupabaseStore(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		fake := &fakeSupabase{objects: map[string][]byte{}, types: map[string]string{}, legacy: legacy}
		srv := httptest.NewServer(fake)

		s := NewSupabaseStore(srv.URL+"/", "secret", "training-images")
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "1-abc.jpg", []byte("jpeg"), "image/jpeg"))
		assert.Equal(t, []byte("jpeg"), fake.objects["1-abc.jpg"])
		assert.Equal(t, "image/jpeg", fake.types["1-abc.jpg"])

		err := s.Put(ctx, "1-abc.jpg", []byte("again"), "image/jpeg")
		assert.ErrorIs(t, err, ErrObjectExists)

		assert.Equal(t, srv.URL+"/storage/v1/object/public/training-images/1-abc.jpg", s.PublicURL("1-abc.jpg"))

		require.NoError(t, s.Delete(ctx, "1-abc.jpg"))
		assert.NotContains(t, fake.objects, "1-abc.jpg")

		srv.Close()
	}
}

func TestSupabaseStore_RejectedKey(t *testing.T) {
	fake := &fakeSupabase{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewSupabaseStore(srv.URL, "wrong", "training-images")
	err := s.Put(context.Background(), "k.jpg", []byte("x"), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectExists)
	assert.Empty(t, fake.objects)
}
