package population

import "fmt"

// TileOpenError means a tile path could not be opened or decoded. It is fatal
// to the whole aggregation call, matching the reference behavior of
// propagating immediately rather than skipping the tile.
type TileOpenError struct {
	Path string
	Err  error
}

func (e *TileOpenError) Error() string {
	return fmt.Sprintf("population: open tile %s: %v", e.Path, e.Err)
}

func (e *TileOpenError) Unwrap() error { return e.Err }

// MissingCRSError means a tile declares no coordinate reference system.
// Accumulation cannot proceed: assuming a CRS would silently corrupt the
// projected buffer.
type MissingCRSError struct {
	Path string
}

func (e *MissingCRSError) Error() string {
	return fmt.Sprintf("population: tile %s has no CRS defined", e.Path)
}

// UnsupportedCRSUnitsError means a tile's CRS uses degree units. Buffer radii
// are meters; summing over a degree-unit grid would miscompute silently, so
// the condition is rejected up front.
type UnsupportedCRSUnitsError struct {
	Path string
	Code int
}

func (e *UnsupportedCRSUnitsError) Error() string {
	return fmt.Sprintf("population: tile %s uses geographic CRS %d (degree units); a projected CRS is required", e.Path, e.Code)
}

// NoOverlapError means the buffer did not intersect any of the provided
// tiles. Raised only after every tile has been examined.
type NoOverlapError struct {
	Lat, Lon float64
	RadiusM  float64
}

func (e *NoOverlapError) Error() string {
	return fmt.Sprintf("population: buffer of %.0f m around (%.5f, %.5f) does not overlap any provided raster tile", e.RadiusM, e.Lat, e.Lon)
}
