// Package fs persists approval records as JSON documents through the
// viant/afs abstraction, so the backing store can be a local directory or
// any afs-supported scheme (mem://, s3://, gs:// ...).
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/viant/approval/service/dao"
)

// collection stores one entity type as <basePath>/<id>.json documents.
type collection[T any] struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
	key      func(*T) string
}

func newCollection[T any](service afs.Service, basePath string, key func(*T) string) (*collection[T], error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	ctx := context.Background()
	if ok, _ := service.Exists(ctx, basePath); !ok {
		if err := service.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return &collection[T]{
		basePath: url.Normalize(basePath, file.Scheme),
		fs:       service,
		key:      key,
	}, nil
}

func (c *collection[T]) location(id string) string {
	return url.Join(c.basePath, id+".json")
}

func (c *collection[T]) save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	id := c.key(v)
	if id == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fs.Upload(ctx, c.location(id), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save record %s: %w", id, err)
	}
	return nil
}

func (c *collection[T]) load(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	location := c.location(id)
	ok, err := c.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check record %s: %w", id, err)
	}
	if !ok {
		return nil, dao.ErrNotFound
	}
	data, err := c.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	var ret T
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &ret, nil
}

func (c *collection[T]) remove(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	location := c.location(id)
	ok, err := c.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check record %s: %w", id, err)
	}
	if !ok {
		return nil
	}
	return c.fs.Delete(ctx, location)
}

func (c *collection[T]) list(ctx context.Context) ([]*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	objects, err := c.fs.List(ctx, c.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	var ret []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := c.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		ret = append(ret, &record)
	}
	return ret, nil
}
