// Package image decodes reassembled frames of packed VIC-II palette
// indices into displayable RGBA images.
package image

import (
	"bufio"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"
)

// vicColors is the default VIC-II palette in BGRA words, as shipped
// by the device documentation.
var vicColors = [16]uint32{
	0xFF000000, 0xFFEFEFEF, 0xFF342F8D, 0xFFCDD46A,
	0xFFA43598, 0xFF42B44C, 0xFFB1292C, 0xFF5DEFEF,
	0xFF204E98, 0xFF00385B, 0xFF6D67D1, 0xFF4A4A4A,
	0xFF7B7B7B, 0xFF93EF9F, 0xFFEF6A6D, 0xFFB2B2B2,
}

// Palette is a hot-swappable 16-colour lookup shared between the
// decoder and the palette file watcher.
type Palette struct {
	mu     sync.RWMutex
	colors [16]color.RGBA
}

func DefaultPalette() *Palette {
	p := &Palette{}
	for i, bgra := range vicColors {
		p.colors[i] = color.RGBA{
			R: uint8(bgra),
			G: uint8(bgra >> 8),
			B: uint8(bgra >> 16),
			A: 0xFF,
		}
	}
	return p
}

func (p *Palette) Colors() (c [16]color.RGBA) {
	p.mu.RLock()
	c = p.colors
	p.mu.RUnlock()
	return
}

func (p *Palette) Set(c [16]color.RGBA) {
	p.mu.Lock()
	p.colors = c
	p.mu.Unlock()
}

// LoadPaletteFile reads a 16-entry palette file. Each non-comment line
// is either an RRGGBB hex value or three decimal components.
func LoadPaletteFile(path string) (c [16]color.RGBA, err error) {
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()

	i := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if i >= 16 {
			return c, fmt.Errorf("palette %s: more than 16 entries", path)
		}
		fields := strings.Fields(line)
		switch {
		case len(fields) >= 3:
			var rgb [3]uint8
			for j := 0; j < 3; j++ {
				v, perr := strconv.ParseUint(fields[j], 0, 8)
				if perr != nil {
					return c, fmt.Errorf("palette %s entry %d: %w", path, i, perr)
				}
				rgb[j] = uint8(v)
			}
			c[i] = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xFF}
		case len(fields) == 1:
			v, perr := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 32)
			if perr != nil {
				return c, fmt.Errorf("palette %s entry %d: %w", path, i, perr)
			}
			c[i] = color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
		}
		i++
	}
	if err := scanner.Err(); err != nil {
		return c, err
	}
	if i != 16 {
		return c, fmt.Errorf("palette %s: got %d entries, want 16", path, i)
	}
	return c, nil
}
