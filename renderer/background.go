package renderer

import (
	_ "embed"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/palette"
)

//go:embed shaders/water.fs
var waterFS string

// waterBackground selects the animated shader instead of a flat color.
const waterBackground = "water"

var defaultFloor = rl.Color{R: 18, G: 52, B: 74, A: 255}

// Background paints the tank floor: a flat color, an image, or animated
// water.
type Background struct {
	color     rl.Color
	imagePath string
	water     bool

	texture    rl.Texture2D
	hasTexture bool

	shader        rl.Shader
	timeLoc       int32
	resolutionLoc int32
	baseColorLoc  int32

	width, height float32
	initialized   bool
}

// NewBackground creates the tank background from cfg.
func NewBackground(cfg config.TankConfig) *Background {
	b := &Background{
		imagePath: cfg.BackgroundImage,
		water:     cfg.Background == waterBackground,
		width:     float32(cfg.Width),
		height:    float32(cfg.Height),
		color:     defaultFloor,
	}
	if !b.water {
		b.color = palette.Or(cfg.Background, defaultFloor)
	}
	return b
}

// Init loads GPU resources (must be called after the raylib window is created).
func (b *Background) Init() {
	if b.initialized {
		return
	}
	if b.imagePath != "" {
		b.texture = rl.LoadTexture(b.imagePath)
		b.hasTexture = rl.IsTextureValid(b.texture)
		if !b.hasTexture {
			slog.Error("background image", "path", b.imagePath)
		}
	}
	if b.water {
		b.shader = rl.LoadShaderFromMemory("", waterFS)
		b.timeLoc = rl.GetShaderLocation(b.shader, "time")
		b.resolutionLoc = rl.GetShaderLocation(b.shader, "resolution")
		b.baseColorLoc = rl.GetShaderLocation(b.shader, "baseColor")

		rl.SetShaderValue(b.shader, b.resolutionLoc, []float32{b.width, b.height}, rl.ShaderUniformVec2)
		base := []float32{float32(b.color.R) / 255, float32(b.color.G) / 255, float32(b.color.B) / 255}
		rl.SetShaderValue(b.shader, b.baseColorLoc, base, rl.ShaderUniformVec3)
	}
	b.initialized = true
}

// Draw paints the floor; time drives the water animation.
func (b *Background) Draw(time float32) {
	if !b.initialized {
		b.Init()
	}

	switch {
	case b.hasTexture:
		src := rl.Rectangle{Width: float32(b.texture.Width), Height: float32(b.texture.Height)}
		dst := rl.Rectangle{Width: b.width, Height: b.height}
		rl.DrawTexturePro(b.texture, src, dst, rl.Vector2{}, 0, rl.White)
	case b.water:
		rl.SetShaderValue(b.shader, b.timeLoc, []float32{time}, rl.ShaderUniformFloat)
		rl.BeginShaderMode(b.shader)
		rl.DrawRectangle(0, 0, int32(b.width), int32(b.height), rl.White)
		rl.EndShaderMode()
	default:
		rl.ClearBackground(b.color)
	}
}

// Unload frees resources.
func (b *Background) Unload() {
	if !b.initialized {
		return
	}
	if b.hasTexture {
		rl.UnloadTexture(b.texture)
	}
	if b.water {
		rl.UnloadShader(b.shader)
	}
	b.initialized = false
}
