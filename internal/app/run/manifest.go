package run

import (
	"encoding/json"
	"image"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/texatlas/internal/atlas"
	"github.com/John-Robertt/texatlas/internal/domain"
)

// Manifest 描述图集中每一帧的位置，写在图集旁边（<name>.json）。
// 坐标使用左上原点，与编码后的图片文件一致。
type Manifest struct {
	Name       string          `json:"name"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Columns    int             `json:"columns"`
	Rows       int             `json:"rows"`
	CellWidth  int             `json:"cell_width"`
	CellHeight int             `json:"cell_height"`
	RowOrder   string          `json:"row_order"`
	EmptyTiles int             `json:"empty_tiles"`
	Frames     []ManifestFrame `json:"frames"`
}

type ManifestFrame struct {
	File   string `json:"file"`
	Frame  int    `json:"frame"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
}

// NewManifest 由布局与帧列表构造 manifest；frames 与 sizes 一一对应（同序）。
func NewManifest(name string, l atlas.Layout, order domain.RowOrder, frames []domain.FrameFile, sizes []image.Point) Manifest {
	m := Manifest{
		Name:       name,
		Width:      l.Width(),
		Height:     l.Height(),
		Columns:    l.Columns,
		Rows:       l.Rows,
		CellWidth:  l.CellWidth,
		CellHeight: l.CellHeight,
		RowOrder:   string(order),
		EmptyTiles: l.EmptyTiles(),
		Frames:     make([]ManifestFrame, 0, len(frames)),
	}
	for _, p := range l.Placements(sizes, order) {
		f := frames[p.Index]
		m.Frames = append(m.Frames, ManifestFrame{
			File:   f.Name,
			Frame:  f.Frame,
			X:      p.X,
			Y:      p.Y,
			W:      p.W,
			H:      p.H,
			Row:    p.Row,
			Column: p.Column,
		})
	}
	return m
}

func EncodeManifest(m Manifest) ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ManifestName：atlas.png => atlas.json
func ManifestName(image string) string {
	return strings.TrimSuffix(image, filepath.Ext(image)) + ".json"
}
