package visual

import (
	"container/list"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// TextureKey identifies a rendered icon.
type TextureKey struct {
	Path  string
	Color string
	Size  int
}

func (k TextureKey) String() string { return fmt.Sprintf("%s|%s|%d", k.Path, k.Color, k.Size) }

// Texture is an icon rendered at a size and tint, as a standalone SVG.
type Texture struct {
	Key         TextureKey
	SVG         []byte
	Placeholder bool
}

// Rasterize renders payload as a size×size SVG tinted with color. SVG
// payloads are inlined; other images are embedded as data URIs.
func Rasterize(key TextureKey, payload []byte) *Texture {
	var body string
	if trimmed := strings.TrimSpace(string(payload)); strings.HasPrefix(trimmed, "<svg") || strings.HasPrefix(trimmed, "<?xml") {
		body = fmt.Sprintf(`<g fill=%q color=%q>%s</g>`, key.Color, key.Color, trimmed)
	} else {
		mime := http.DetectContentType(payload)
		body = fmt.Sprintf(`<image width="%d" height="%d" href="data:%s;base64,%s"/>`,
			key.Size, key.Size, mime, base64.StdEncoding.EncodeToString(payload))
	}
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">%s</svg>`, key.Size, key.Size, body)
	return &Texture{Key: key, SVG: []byte(svg)}
}

// Placeholder renders the fallback texture shown when an icon is missing.
func Placeholder(key TextureKey) *Texture {
	r := float64(key.Size) / 2
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><circle cx="%g" cy="%g" r="%g" fill="none" stroke=%q stroke-dasharray="3 2"/></svg>`,
		key.Size, key.Size, r, r, r-1, key.Color)
	return &Texture{Key: key, SVG: []byte(svg), Placeholder: true}
}

// TextureCache is an LRU of rendered textures. A capacity of zero or less
// means unbounded.
type TextureCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[TextureKey]*list.Element
}

// NewTextureCache returns an empty cache holding at most capacity textures.
func NewTextureCache(capacity int) *TextureCache {
	return &TextureCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[TextureKey]*list.Element),
	}
}

// Get returns the texture for key and marks it recently used.
func (c *TextureCache) Get(key TextureKey) (*Texture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*Texture), true
}

// Put stores t, evicting the least recently used texture when full.
func (c *TextureCache) Put(t *Texture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[t.Key]; ok {
		el.Value = t
		c.ll.MoveToFront(el)
		return
	}
	c.items[t.Key] = c.ll.PushFront(t)
	if c.capacity > 0 && c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*Texture).Key)
	}
}

// Len returns the number of cached textures.
func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear drops every texture.
func (c *TextureCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
}
