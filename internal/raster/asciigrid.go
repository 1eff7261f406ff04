package raster

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ASCIIGrid reads Esri ASCII grid (.asc) tiles. The format carries no CRS;
// a sidecar .prj file next to the tile supplies one when present.
type ASCIIGrid struct {
	path      string
	cols      int
	rows      int
	transform Transform
	nodata    float64
	hasNodata bool
	crs       CRS
	hasCRS    bool
	data      []float64
}

// OpenASCIIGrid parses an .asc tile fully into memory (the format is not
// seekable in any useful way) and looks for a .prj sidecar for the CRS.
func OpenASCIIGrid(path string) (*ASCIIGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "asciigrid: open %s", path)
	}
	defer func() { _ = f.Close() }()

	g := &ASCIIGrid{path: path}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	var (
		xll, yll  float64
		cellSize  float64
		xIsCenter bool
		yIsCenter bool
		values    []float64
	)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToLower(fields[0])

		// Header keys come first; the first purely numeric token starts the data.
		if _, numErr := strconv.ParseFloat(fields[0], 64); numErr == nil {
			for _, tok := range fields {
				v, perr := strconv.ParseFloat(tok, 64)
				if perr != nil {
					return nil, eris.Wrapf(perr, "asciigrid: %s: bad cell value %q", path, tok)
				}
				values = append(values, v)
			}
			continue
		}

		if len(fields) != 2 {
			return nil, eris.Errorf("asciigrid: %s: malformed header line %q", path, line)
		}
		v, perr := strconv.ParseFloat(fields[1], 64)
		if perr != nil {
			return nil, eris.Wrapf(perr, "asciigrid: %s: bad header value %q", path, line)
		}
		switch key {
		case "ncols":
			g.cols = int(v)
		case "nrows":
			g.rows = int(v)
		case "xllcorner":
			xll = v
		case "xllcenter":
			xll, xIsCenter = v, true
		case "yllcorner":
			yll = v
		case "yllcenter":
			yll, yIsCenter = v, true
		case "cellsize":
			cellSize = v
		case "nodata_value":
			g.nodata = v
			g.hasNodata = true
		default:
			return nil, eris.Errorf("asciigrid: %s: unknown header key %q", path, key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "asciigrid: scan %s", path)
	}

	if g.cols <= 0 || g.rows <= 0 || cellSize <= 0 {
		return nil, eris.Errorf("asciigrid: %s: incomplete header", path)
	}
	if len(values) != g.cols*g.rows {
		return nil, eris.Errorf("asciigrid: %s: have %d cells, header says %d", path, len(values), g.cols*g.rows)
	}
	if xIsCenter {
		xll -= cellSize / 2
	}
	if yIsCenter {
		yll -= cellSize / 2
	}

	g.data = values
	g.transform = Transform{
		OriginX:     xll,
		OriginY:     yll + float64(g.rows)*cellSize,
		PixelWidth:  cellSize,
		PixelHeight: -cellSize,
	}

	if code, ok := readPRJSidecar(path); ok {
		g.crs = CRS{Code: code}
		g.hasCRS = true
	}
	return g, nil
}

// readPRJSidecar extracts an authority code from <tile>.prj. Both a bare
// numeric code and ESRI WKT (last AUTHORITY clause wins) are accepted.
func readPRJSidecar(tilePath string) (int, bool) {
	base := strings.TrimSuffix(tilePath, filepath.Ext(tilePath))
	raw, err := os.ReadFile(base + ".prj")
	if err != nil {
		return 0, false
	}
	text := strings.TrimSpace(string(raw))

	if code, perr := strconv.Atoi(text); perr == nil {
		return code, true
	}

	const marker = `AUTHORITY["EPSG","`
	code, found := 0, false
	for rest := text; ; {
		i := strings.Index(rest, marker)
		if i < 0 {
			break
		}
		rest = rest[i+len(marker):]
		j := strings.Index(rest, `"`)
		if j < 0 {
			break
		}
		if v, perr := strconv.Atoi(rest[:j]); perr == nil {
			code, found = v, true
		}
	}
	return code, found
}

func (g *ASCIIGrid) CRS() (CRS, bool)        { return g.crs, g.hasCRS }
func (g *ASCIIGrid) Size() (int, int)        { return g.cols, g.rows }
func (g *ASCIIGrid) Transform() Transform    { return g.transform }
func (g *ASCIIGrid) Bounds() Bounds          { return g.transform.Extent(g.cols, g.rows) }
func (g *ASCIIGrid) Nodata() (float64, bool) { return g.nodata, g.hasNodata }

func (g *ASCIIGrid) Close() error {
	g.data = nil
	return nil
}

func (g *ASCIIGrid) ReadWindow(w Window) (*Grid, error) {
	if w.Col < 0 || w.Row < 0 || w.Col+w.Width > g.cols || w.Row+w.Height > g.rows {
		return nil, eris.Errorf("asciigrid: %s: window out of range", g.path)
	}
	out := &Grid{
		Data:      make([]float64, w.Width*w.Height),
		Width:     w.Width,
		Height:    w.Height,
		Transform: g.transform.Shift(w.Col, w.Row),
	}
	for r := 0; r < w.Height; r++ {
		src := g.data[(w.Row+r)*g.cols+w.Col : (w.Row+r)*g.cols+w.Col+w.Width]
		copy(out.Data[r*w.Width:], src)
	}
	return out, nil
}
