package ai

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"sync"

	"storyforge.app/api/internal/common"
)

// Mock picks drafts from fixed lists. Used when no API key is configured.
type Mock struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMock() *Mock {
	return &Mock{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

var mockNames = map[common.Kind][]string{
	common.KindCharacter:   {"Aria Nightwhisper", "Thorne Blackwood", "Lyra Emberheart", "Kael Stormborn", "Mira Ashdown"},
	common.KindEnvironment: {"The Sunken Archive", "Emberfall Ridge", "Whispering Mire", "Glasshollow", "The Iron Bazaar"},
	common.KindProp:        {"Lantern of Echoes", "The Gilded Compass", "Thornwood Staff", "Obsidian Locket", "Cartographer's Quill"},
}

var mockTraits = []string{
	"quietly stubborn", "haunted by an old promise", "older than it looks",
	"shaped by a forgotten war", "touched by strange light", "known in every tavern song",
	"half-remembered by the locals", "stitched together from salvage",
}

func (m *Mock) pick(list []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return list[m.rnd.IntN(len(list))]
}

func (m *Mock) GenerateCreation(_ context.Context, kind common.Kind, prompt string) (*Draft, error) {
	d := &Draft{
		Kind:   kind,
		Name:   m.pick(mockNames[kind]),
		Fields: make(map[string]string, len(kind.Fields())),
	}
	d.Summary = "A " + string(kind) + " " + m.pick(mockTraits) + "."
	if p := common.NormalizeSpace(prompt); p != "" {
		d.Summary += " Inspired by: " + common.Truncate(p, 200)
	}
	for _, f := range kind.Fields() {
		d.Fields[f] = "Something " + m.pick(mockTraits) + "."
	}
	return d, nil
}

// GenerateImage returns a small solid-color PNG.
func (m *Mock) GenerateImage(_ context.Context, kind common.Kind, _ string) (*Image, error) {
	m.mu.Lock()
	fill := color.RGBA{R: uint8(m.rnd.IntN(256)), G: uint8(m.rnd.IntN(256)), B: uint8(m.rnd.IntN(256)), A: 255}
	m.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Image{Bytes: buf.Bytes(), MimeType: "image/png"}, nil
}
