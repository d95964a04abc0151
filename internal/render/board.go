// Package render draws the mines board as a PNG image from tile sprites.
package render

import (
	"bytes"
	"fmt"
	"image"
	stddraw "image/draw"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"glitch-bot/internal/game/mines"
)

// Field geometry, in pixels.
const (
	fieldWidth  = 1440
	fieldHeight = 1440
	cellPadding = 10
)

// BoardRenderer turns a board view into an image. The bot layer depends on
// this interface so tests can swap in a stub.
type BoardRenderer interface {
	Render(view *mines.BoardView) ([]byte, error)
}

// TileRenderer composites sprite tiles over a background image. The images
// directory must contain field.png plus one tile per cell status:
// press.png, explosion.png, bomb.png and empty.png.
type TileRenderer struct {
	background image.Image
	tiles      map[mines.CellStatus]image.Image
}

// NewTileRenderer loads the sprite set from imagesDir.
func NewTileRenderer(imagesDir string) (*TileRenderer, error) {
	background, err := loadImage(filepath.Join(imagesDir, "field.png"))
	if err != nil {
		return nil, err
	}

	tiles := make(map[mines.CellStatus]image.Image, 4)
	for status, name := range map[mines.CellStatus]string{
		mines.CellPress:     "press.png",
		mines.CellExplosion: "explosion.png",
		mines.CellBomb:      "bomb.png",
		mines.CellEmpty:     "empty.png",
	} {
		img, err := loadImage(filepath.Join(imagesDir, name))
		if err != nil {
			return nil, err
		}
		tiles[status] = img
	}
	return &TileRenderer{background: background, tiles: tiles}, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sprite: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sprite %s: %w", path, err)
	}
	return img, nil
}

// Render draws the board as a PNG. Cells still hidden keep the plain
// background; on the final disclosure view (GameOver) unrevealed safe
// cells get the empty tile so the whole board reads as opened.
func (r *TileRenderer) Render(view *mines.BoardView) ([]byte, error) {
	if view.Size < 1 {
		return nil, fmt.Errorf("invalid board size %d", view.Size)
	}
	cellSize := (fieldWidth - (view.Size+1)*cellPadding) / view.Size

	canvas := image.NewRGBA(image.Rect(0, 0, fieldWidth, fieldHeight))
	xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), r.background, r.background.Bounds(), xdraw.Src, nil)

	scaled := make(map[mines.CellStatus]*image.RGBA, len(r.tiles))
	for status, tile := range r.tiles {
		dst := image.NewRGBA(image.Rect(0, 0, cellSize, cellSize))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), tile, tile.Bounds(), xdraw.Src, nil)
		scaled[status] = dst
	}

	for cell := 1; cell <= view.Size*view.Size; cell++ {
		status, ok := view.Cells[cell]
		if !ok {
			status = mines.CellEmpty
		}
		if status == mines.CellEmpty && !view.GameOver {
			continue
		}
		tile, ok := scaled[status]
		if !ok {
			continue
		}
		row := (cell - 1) / view.Size
		col := (cell - 1) % view.Size
		x := col*(cellSize+cellPadding) + cellPadding
		y := row*(cellSize+cellPadding) + cellPadding
		rect := image.Rect(x, y, x+cellSize, y+cellSize)
		stddraw.Draw(canvas, rect, tile, image.Point{}, stddraw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode board image: %w", err)
	}
	return buf.Bytes(), nil
}
