package image

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePalette(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "palette.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultPalette(t *testing.T) {
	p := DefaultPalette()
	c := p.Colors()

	// black, then the classic VIC-II white
	assert.Equal(t, color.RGBA{A: 0xFF}, c[0])
	assert.Equal(t, color.RGBA{R: 0xEF, G: 0xEF, B: 0xEF, A: 0xFF}, c[1])
	for _, col := range c {
		assert.EqualValues(t, 0xFF, col.A)
	}
}

func TestLoadPaletteFileHex(t *testing.T) {
	lines := []string{"# test palette", "102030"}
	for i := 1; i < 16; i++ {
		lines = append(lines, "000000")
	}
	c, err := LoadPaletteFile(writePalette(t, strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF}, c[0])
}

func TestLoadPaletteFileDecimal(t *testing.T) {
	lines := []string{"; decimal components", "16 32 48"}
	for i := 1; i < 16; i++ {
		lines = append(lines, "0 0 0")
	}
	c, err := LoadPaletteFile(writePalette(t, strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 16, G: 32, B: 48, A: 0xFF}, c[0])
}

func TestLoadPaletteFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"too few entries", "000000\n000000"},
		{"too many entries", strings.Repeat("000000\n", 17)},
		{"bad hex", strings.Repeat("000000\n", 15) + "zzzzzz"},
		{"bad decimal", strings.Repeat("0 0 0\n", 15) + "a b c"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadPaletteFile(writePalette(t, test.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadPaletteFileMissing(t *testing.T) {
	_, err := LoadPaletteFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestPaletteSwap(t *testing.T) {
	p := DefaultPalette()
	var c [16]color.RGBA
	c[3] = color.RGBA{R: 1, G: 2, B: 3, A: 0xFF}
	p.Set(c)
	assert.Equal(t, c, p.Colors())
}
