package renderer

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type decoded struct {
	path string
	img  image.Image
	err  error
}

// imageCache decodes entity images off the render thread. Textures are
// created on the render thread in collect.
type imageCache struct {
	textures map[string]rl.Texture2D
	failed   map[string]bool
	loading  map[string]bool
	done     chan decoded
}

func newImageCache() *imageCache {
	return &imageCache{
		textures: make(map[string]rl.Texture2D),
		failed:   make(map[string]bool),
		loading:  make(map[string]bool),
		done:     make(chan decoded, 16),
	}
}

// texture returns the texture for path, if it is ready.
func (c *imageCache) texture(path string) (rl.Texture2D, bool) {
	t, ok := c.textures[path]
	return t, ok
}

// request starts decoding path. It reports false if the image is ready,
// failed or already loading.
func (c *imageCache) request(path string) bool {
	if _, ok := c.textures[path]; ok || c.failed[path] || c.loading[path] {
		return false
	}
	c.loading[path] = true
	go func() {
		img, err := decodeFile(path)
		c.done <- decoded{path: path, img: img, err: err}
	}()
	return true
}

// collect turns finished decodes into textures without blocking and
// returns them.
func (c *imageCache) collect() []decoded {
	var out []decoded
	for {
		select {
		case d := <-c.done:
			delete(c.loading, d.path)
			if d.err != nil {
				c.failed[d.path] = true
			} else {
				img := rl.NewImageFromImage(d.img)
				c.textures[d.path] = rl.LoadTextureFromImage(img)
				rl.UnloadImage(img)
			}
			out = append(out, d)
		default:
			return out
		}
	}
}

func (c *imageCache) unload() {
	for path, t := range c.textures {
		rl.UnloadTexture(t)
		delete(c.textures, path)
	}
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
