// Package export writes feature layers out as shapefiles and KMZ archives.
package export

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	nonWord     = regexp.MustCompile(`[^\w]+`)
	underscores = regexp.MustCompile(`_+`)
)

// SanitizeFilename reduces a layer name to a safe filename base: non-word
// runs become underscores, runs collapse, edges are trimmed. An empty result
// falls back to "export".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = nonWord.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "export"
	}
	return name
}

// sidecarExts is the set of extensions forming one shapefile dataset.
var sidecarExts = []string{".shp", ".dbf", ".shx", ".prj", ".cpg", ".sbn", ".sbx", ".xml"}

// DeleteShapefileSet removes a shapefile and its sidecars. Missing sidecars
// are not an error.
func DeleteShapefileSet(shpPath string) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range sidecarExts {
		p := base + ext
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("export: remove sidecar", zap.String("path", p), zap.Error(err))
		}
	}
}

// Options controls shapefile and KMZ export.
type Options struct {
	Overwrite bool
}

// CopySHP copies a shapefile dataset (fields and shapes) to
// <outFolder>/<base>.shp. With Overwrite set an existing dataset is deleted
// first; without it the export fails rather than clobbering.
func CopySHP(srcPath, outFolder, base string, opts Options) (string, error) {
	outPath := filepath.Join(outFolder, base+".shp")

	if _, err := os.Stat(outPath); err == nil {
		if !opts.Overwrite {
			return "", eris.Errorf("export: %s already exists", outPath)
		}
		DeleteShapefileSet(outPath)
	}

	reader, err := shp.Open(srcPath)
	if err != nil {
		return "", eris.Wrapf(err, "export: open shapefile %s", srcPath)
	}
	defer func() { _ = reader.Close() }()

	writer, err := shp.Create(outPath, reader.GeometryType)
	if err != nil {
		return "", eris.Wrapf(err, "export: create shapefile %s", outPath)
	}
	defer writer.Close()

	fields := reader.Fields()
	if err := writer.SetFields(fields); err != nil {
		return "", eris.Wrap(err, "export: set fields")
	}

	count := 0
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}
		writer.Write(shape)
		for j := range fields {
			val := strings.TrimRight(reader.Attribute(j), "\x00")
			if err := writer.WriteAttribute(count, j, val); err != nil {
				return "", eris.Wrapf(err, "export: write attribute %d of record %d", j, count)
			}
		}
		count++
	}

	// go-shp does not carry the .prj sidecar; copy it so the CRS survives.
	if err := copySidecar(srcPath, outPath, ".prj"); err != nil {
		return "", err
	}

	zap.L().Info("export: wrote shapefile",
		zap.String("path", outPath),
		zap.Int("features", count),
	)
	return outPath, nil
}

func copySidecar(srcPath, outPath, ext string) error {
	src := strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ext
	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "export: read sidecar %s", src)
	}
	dst := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ext
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write sidecar %s", dst)
	}
	return nil
}
