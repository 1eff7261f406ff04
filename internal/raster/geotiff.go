package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// TIFF tag IDs used by the reader.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNodata      = 42113
)

// GeoTIFF geokeys.
const (
	keyGTModelType      = 1024
	keyGeographicType   = 2048
	keyProjectedCSType  = 3072
	geoKeyUserDefined   = 32767
	modelTypeGeographic = 2
)

const (
	compressionNone      = 1
	compressionDeflate   = 8
	compressionDeflateOld = 32946
)

const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

// GeoTIFF reads single-band classic TIFF population tiles, strip- or
// tile-organized, uncompressed or deflate-compressed.
type GeoTIFF struct {
	path  string
	data  []byte
	order binary.ByteOrder

	cols, rows int
	bits       int
	format     int
	compress   int
	predictor  int

	// strip layout (rowsPerStrip > 0) or tile layout (tileW > 0)
	rowsPerStrip int
	tileW, tileH int
	offsets      []uint64
	counts       []uint64

	transform Transform
	crs       CRS
	hasCRS    bool
	nodata    float64
	hasNodata bool
}

// OpenGeoTIFF opens and parses a GeoTIFF header. Pixel data is decoded
// lazily by ReadWindow.
func OpenGeoTIFF(path string) (*GeoTIFF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geotiff: read %s", path)
	}
	g := &GeoTIFF{path: path, data: data, predictor: 1, compress: compressionNone}
	if err := g.parse(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GeoTIFF) parse() error {
	if len(g.data) < 8 {
		return eris.Errorf("geotiff: %s: truncated header", g.path)
	}
	switch string(g.data[:2]) {
	case "II":
		g.order = binary.LittleEndian
	case "MM":
		g.order = binary.BigEndian
	default:
		return eris.Errorf("geotiff: %s: not a TIFF file", g.path)
	}
	if g.order.Uint16(g.data[2:4]) != 42 {
		return eris.Errorf("geotiff: %s: unsupported TIFF variant", g.path)
	}

	ifdOff := int64(g.order.Uint32(g.data[4:8]))
	if ifdOff < 8 || ifdOff+2 > int64(len(g.data)) {
		return eris.Errorf("geotiff: %s: bad IFD offset", g.path)
	}

	nEntries := int(g.order.Uint16(g.data[ifdOff : ifdOff+2]))
	end := ifdOff + 2 + int64(nEntries)*12
	if end > int64(len(g.data)) {
		return eris.Errorf("geotiff: %s: truncated IFD", g.path)
	}

	g.bits = 32
	g.format = sampleFormatUint
	samplesPerPixel := 1

	var pixelScale, tiepoint []float64
	var geoKeys []uint16

	for i := 0; i < nEntries; i++ {
		e := g.data[ifdOff+2+int64(i)*12:]
		tag := g.order.Uint16(e[0:2])
		typ := g.order.Uint16(e[2:4])
		count := g.order.Uint32(e[4:8])

		switch tag {
		case tagImageWidth:
			g.cols = int(g.scalar(e, typ))
		case tagImageLength:
			g.rows = int(g.scalar(e, typ))
		case tagBitsPerSample:
			vals, err := g.ints(e, typ, count)
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				g.bits = int(vals[0])
			}
		case tagCompression:
			g.compress = int(g.scalar(e, typ))
		case tagSamplesPerPixel:
			samplesPerPixel = int(g.scalar(e, typ))
		case tagRowsPerStrip:
			g.rowsPerStrip = int(g.scalar(e, typ))
		case tagStripOffsets, tagTileOffsets:
			vals, err := g.ints(e, typ, count)
			if err != nil {
				return err
			}
			g.offsets = vals
		case tagStripByteCounts, tagTileByteCounts:
			vals, err := g.ints(e, typ, count)
			if err != nil {
				return err
			}
			g.counts = vals
		case tagTileWidth:
			g.tileW = int(g.scalar(e, typ))
		case tagTileLength:
			g.tileH = int(g.scalar(e, typ))
		case tagPredictor:
			g.predictor = int(g.scalar(e, typ))
		case tagSampleFormat:
			vals, err := g.ints(e, typ, count)
			if err != nil {
				return err
			}
			if len(vals) > 0 {
				g.format = int(vals[0])
			}
		case tagModelPixelScale:
			vals, err := g.doubles(e, count)
			if err != nil {
				return err
			}
			pixelScale = vals
		case tagModelTiepoint:
			vals, err := g.doubles(e, count)
			if err != nil {
				return err
			}
			tiepoint = vals
		case tagGeoKeyDirectory:
			vals, err := g.ints(e, typ, count)
			if err != nil {
				return err
			}
			geoKeys = make([]uint16, len(vals))
			for j, v := range vals {
				geoKeys[j] = uint16(v)
			}
		case tagGDALNodata:
			s, err := g.ascii(e, count)
			if err != nil {
				return err
			}
			if v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
				g.nodata = v
				g.hasNodata = true
			}
		}
	}

	if g.cols <= 0 || g.rows <= 0 {
		return eris.Errorf("geotiff: %s: missing image dimensions", g.path)
	}
	if samplesPerPixel != 1 {
		return eris.Errorf("geotiff: %s: %d samples per pixel, want single band", g.path, samplesPerPixel)
	}
	switch g.compress {
	case compressionNone, compressionDeflate, compressionDeflateOld:
	default:
		return eris.Errorf("geotiff: %s: unsupported compression %d", g.path, g.compress)
	}
	if g.predictor != 1 && g.predictor != 2 {
		return eris.Errorf("geotiff: %s: unsupported predictor %d", g.path, g.predictor)
	}
	if err := g.checkSampleType(); err != nil {
		return err
	}
	if len(g.offsets) == 0 || len(g.offsets) != len(g.counts) {
		return eris.Errorf("geotiff: %s: missing strip/tile layout", g.path)
	}
	if g.tileW == 0 && g.rowsPerStrip == 0 {
		g.rowsPerStrip = g.rows
	}

	if len(pixelScale) < 2 || len(tiepoint) < 6 {
		return eris.Errorf("geotiff: %s: missing georeferencing tags", g.path)
	}
	// Tiepoint maps raster point (i, j) to model point (x, y); the origin is
	// shifted back to cell (0, 0).
	g.transform = Transform{
		OriginX:     tiepoint[3] - tiepoint[0]*pixelScale[0],
		OriginY:     tiepoint[4] + tiepoint[1]*pixelScale[1],
		PixelWidth:  pixelScale[0],
		PixelHeight: -pixelScale[1],
	}

	g.parseGeoKeys(geoKeys)
	return nil
}

func (g *GeoTIFF) checkSampleType() error {
	switch {
	case g.format == sampleFormatFloat && (g.bits == 32 || g.bits == 64):
	case g.format == sampleFormatUint && (g.bits == 8 || g.bits == 16 || g.bits == 32):
	case g.format == sampleFormatInt && (g.bits == 16 || g.bits == 32):
	default:
		return eris.Errorf("geotiff: %s: unsupported sample type (format=%d bits=%d)", g.path, g.format, g.bits)
	}
	return nil
}

// parseGeoKeys extracts the CRS code from the GeoKeyDirectory. The directory
// is groups of four shorts: key, location, count, value.
func (g *GeoTIFF) parseGeoKeys(keys []uint16) {
	if len(keys) < 4 {
		return
	}
	modelType := 0
	projected, geographic := 0, 0
	for i := 4; i+3 < len(keys); i += 4 {
		key, loc, value := keys[i], keys[i+1], keys[i+3]
		if loc != 0 {
			continue // value stored in another tag; none of ours are
		}
		switch key {
		case keyGTModelType:
			modelType = int(value)
		case keyProjectedCSType:
			projected = int(value)
		case keyGeographicType:
			geographic = int(value)
		}
	}
	switch {
	case projected != 0 && projected != geoKeyUserDefined:
		g.crs = CRS{Code: projected}
		g.hasCRS = true
	case modelTypeGeographic == modelType && geographic != 0 && geographic != geoKeyUserDefined:
		g.crs = CRS{Code: geographic}
		g.hasCRS = true
	}
}

func (g *GeoTIFF) CRS() (CRS, bool)        { return g.crs, g.hasCRS }
func (g *GeoTIFF) Size() (int, int)        { return g.cols, g.rows }
func (g *GeoTIFF) Transform() Transform    { return g.transform }
func (g *GeoTIFF) Bounds() Bounds          { return g.transform.Extent(g.cols, g.rows) }
func (g *GeoTIFF) Nodata() (float64, bool) { return g.nodata, g.hasNodata }

func (g *GeoTIFF) Close() error {
	g.data = nil
	return nil
}

// ReadWindow decodes only the strips or tiles overlapping the window.
func (g *GeoTIFF) ReadWindow(w Window) (*Grid, error) {
	if w.Col < 0 || w.Row < 0 || w.Col+w.Width > g.cols || w.Row+w.Height > g.rows {
		return nil, eris.Errorf("geotiff: %s: window out of range", g.path)
	}
	out := &Grid{
		Data:      make([]float64, w.Width*w.Height),
		Width:     w.Width,
		Height:    w.Height,
		Transform: g.transform.Shift(w.Col, w.Row),
	}
	if g.tileW > 0 {
		if err := g.readTiled(w, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := g.readStripped(w, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GeoTIFF) readStripped(w Window, out *Grid) error {
	first := w.Row / g.rowsPerStrip
	last := (w.Row + w.Height - 1) / g.rowsPerStrip
	for s := first; s <= last; s++ {
		if s >= len(g.offsets) {
			return eris.Errorf("geotiff: %s: strip %d out of range", g.path, s)
		}
		stripTop := s * g.rowsPerStrip
		stripRows := g.rowsPerStrip
		if stripTop+stripRows > g.rows {
			stripRows = g.rows - stripTop
		}
		vals, err := g.decodeChunk(s, g.cols, stripRows)
		if err != nil {
			return err
		}
		for r := 0; r < stripRows; r++ {
			row := stripTop + r
			if row < w.Row || row >= w.Row+w.Height {
				continue
			}
			src := vals[r*g.cols+w.Col : r*g.cols+w.Col+w.Width]
			copy(out.Data[(row-w.Row)*w.Width:], src)
		}
	}
	return nil
}

func (g *GeoTIFF) readTiled(w Window, out *Grid) error {
	tilesAcross := (g.cols + g.tileW - 1) / g.tileW
	tc0, tc1 := w.Col/g.tileW, (w.Col+w.Width-1)/g.tileW
	tr0, tr1 := w.Row/g.tileH, (w.Row+w.Height-1)/g.tileH
	for tr := tr0; tr <= tr1; tr++ {
		for tc := tc0; tc <= tc1; tc++ {
			idx := tr*tilesAcross + tc
			if idx >= len(g.offsets) {
				return eris.Errorf("geotiff: %s: tile %d out of range", g.path, idx)
			}
			vals, err := g.decodeChunk(idx, g.tileW, g.tileH)
			if err != nil {
				return err
			}
			for r := 0; r < g.tileH; r++ {
				row := tr*g.tileH + r
				if row < w.Row || row >= w.Row+w.Height || row >= g.rows {
					continue
				}
				for c := 0; c < g.tileW; c++ {
					col := tc*g.tileW + c
					if col < w.Col || col >= w.Col+w.Width || col >= g.cols {
						continue
					}
					out.Data[(row-w.Row)*w.Width+(col-w.Col)] = vals[r*g.tileW+c]
				}
			}
		}
	}
	return nil
}

// decodeChunk decompresses and converts one strip or tile to float64 values.
func (g *GeoTIFF) decodeChunk(idx, width, height int) ([]float64, error) {
	off, cnt := g.offsets[idx], g.counts[idx]
	if off+cnt > uint64(len(g.data)) {
		return nil, eris.Errorf("geotiff: %s: chunk %d past end of file", g.path, idx)
	}
	raw := g.data[off : off+cnt]

	if g.compress != compressionNone {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "geotiff: %s: open deflate chunk %d", g.path, idx)
		}
		raw, err = io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "geotiff: %s: inflate chunk %d", g.path, idx)
		}
	}

	bytesPer := g.bits / 8
	need := width * height * bytesPer
	if len(raw) < need {
		// The final strip may be short; missing cells stay zero.
		padded := make([]byte, need)
		copy(padded, raw)
		raw = padded
	}

	if g.predictor == 2 {
		undoHorizontalPredictor(raw, width, height, bytesPer, g.order)
	}

	vals := make([]float64, width*height)
	for i := range vals {
		b := raw[i*bytesPer:]
		switch {
		case g.format == sampleFormatFloat && g.bits == 32:
			vals[i] = float64(math.Float32frombits(g.order.Uint32(b)))
		case g.format == sampleFormatFloat && g.bits == 64:
			vals[i] = math.Float64frombits(g.order.Uint64(b))
		case g.format == sampleFormatUint && g.bits == 8:
			vals[i] = float64(b[0])
		case g.format == sampleFormatUint && g.bits == 16:
			vals[i] = float64(g.order.Uint16(b))
		case g.format == sampleFormatUint && g.bits == 32:
			vals[i] = float64(g.order.Uint32(b))
		case g.format == sampleFormatInt && g.bits == 16:
			vals[i] = float64(int16(g.order.Uint16(b)))
		case g.format == sampleFormatInt && g.bits == 32:
			vals[i] = float64(int32(g.order.Uint32(b)))
		}
	}
	return vals, nil
}

// undoHorizontalPredictor reverses TIFF predictor 2 in place, row by row.
// Differencing applies per byte-width integer sample.
func undoHorizontalPredictor(raw []byte, width, height, bytesPer int, order binary.ByteOrder) {
	for r := 0; r < height; r++ {
		row := raw[r*width*bytesPer : (r+1)*width*bytesPer]
		for c := 1; c < width; c++ {
			switch bytesPer {
			case 1:
				row[c] += row[c-1]
			case 2:
				v := order.Uint16(row[c*2:]) + order.Uint16(row[(c-1)*2:])
				order.PutUint16(row[c*2:], v)
			case 4:
				v := order.Uint32(row[c*4:]) + order.Uint32(row[(c-1)*4:])
				order.PutUint32(row[c*4:], v)
			}
		}
	}
}

// ---- IFD value helpers ----

// scalar reads a single SHORT or LONG stored inline in the entry.
func (g *GeoTIFF) scalar(entry []byte, typ uint16) uint64 {
	switch typ {
	case 3: // SHORT
		return uint64(g.order.Uint16(entry[8:10]))
	case 4: // LONG
		return uint64(g.order.Uint32(entry[8:12]))
	}
	return 0
}

// ints reads an array of SHORT or LONG values, inline or offset-stored.
func (g *GeoTIFF) ints(entry []byte, typ uint16, count uint32) ([]uint64, error) {
	var size int
	switch typ {
	case 3:
		size = 2
	case 4:
		size = 4
	default:
		return nil, eris.Errorf("geotiff: %s: unexpected integer tag type %d", g.path, typ)
	}
	buf, err := g.valueBytes(entry, int(count)*size)
	if err != nil {
		return nil, err
	}
	vals := make([]uint64, count)
	for i := range vals {
		if size == 2 {
			vals[i] = uint64(g.order.Uint16(buf[i*2:]))
		} else {
			vals[i] = uint64(g.order.Uint32(buf[i*4:]))
		}
	}
	return vals, nil
}

// doubles reads an array of DOUBLE values (always offset-stored when count > 0).
func (g *GeoTIFF) doubles(entry []byte, count uint32) ([]float64, error) {
	buf, err := g.valueBytes(entry, int(count)*8)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, count)
	for i := range vals {
		vals[i] = math.Float64frombits(g.order.Uint64(buf[i*8:]))
	}
	return vals, nil
}

// ascii reads a NUL-terminated ASCII tag value.
func (g *GeoTIFF) ascii(entry []byte, count uint32) (string, error) {
	buf, err := g.valueBytes(entry, int(count))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

// valueBytes returns the tag's value bytes, following the offset when the
// value does not fit in the four inline bytes.
func (g *GeoTIFF) valueBytes(entry []byte, size int) ([]byte, error) {
	if size <= 4 {
		return entry[8 : 8+size], nil
	}
	off := int(g.order.Uint32(entry[8:12]))
	if off+size > len(g.data) {
		return nil, eris.Errorf("geotiff: %s: tag value past end of file", g.path)
	}
	return g.data[off : off+size], nil
}
