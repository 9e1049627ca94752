package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v2"

	auth "github.com/yapyap/go-auth"
)

type Object struct {
	ContentType string
	Data        []byte
}

// Memory keeps objects in process. Uploads are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

var _ auth.BlobStore = (*Memory)(nil)

func NewMemory(publicBaseURL string) *Memory {
	return &Memory{
		objects: make(map[string]Object),
		baseURL: publicBaseURL,
	}
}

func (m *Memory) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", key, err)
	}

	m.mu.Lock()
	m.objects[key] = Object{ContentType: contentType, Data: data}
	m.mu.Unlock()

	return url.JoinPath(m.baseURL, key)
}

func (m *Memory) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Serve answers GET <prefix>/* with the stored object.
func (m *Memory) Serve(c *fiber.Ctx) error {
	obj, ok := m.Get(c.Params("*"))
	if !ok {
		return fiber.ErrNotFound
	}
	c.Set(fiber.HeaderContentType, obj.ContentType)
	return c.Send(obj.Data)
}
