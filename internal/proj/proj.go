// Package proj transforms geographic WGS84 coordinates into the projected
// reference systems the population tiles ship in. Forward transforms only;
// the aggregator never needs the inverse direction.
//
// Formulas follow Snyder, "Map Projections: A Working Manual" (USGS PP 1395).
package proj

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/Outaos/data-steward/internal/raster"
)

// Units is the linear unit of a CRS's coordinates.
type Units int

const (
	UnitMeter Units = iota
	UnitDegree
)

// WGS84 / GRS80 ellipsoid constants. The two ellipsoids differ below the
// millimeter for these projections, so one flattening serves both.
const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257222101
)

var (
	e2 = 2*flattening - flattening*flattening
	e1 = math.Sqrt(e2)
)

// Transformer maps (lon, lat) in degrees to x/y in a target CRS.
type Transformer struct {
	crs     raster.CRS
	units   Units
	forward func(lon, lat float64) (x, y float64)
}

// ForCRS builds a Transformer for the given authority code.
//
// Supported codes: 4326 (passthrough, degree units), 3857 Web Mercator,
// 54009 World Mollweide (the GHS-POP grid), 3005 BC Albers, 3035 ETRS89-LAEA,
// and the UTM zones 32601-32660 / 32701-32760.
func ForCRS(crs raster.CRS) (*Transformer, error) {
	code := crs.Code
	switch {
	case code == 4326:
		return &Transformer{crs: crs, units: UnitDegree, forward: func(lon, lat float64) (float64, float64) {
			return lon, lat
		}}, nil
	case code == 3857:
		return &Transformer{crs: crs, units: UnitMeter, forward: webMercator}, nil
	case code == 54009:
		return &Transformer{crs: crs, units: UnitMeter, forward: mollweide}, nil
	case code == 3005:
		fwd := albersConic(45, -126, 50, 58.5, 1000000, 0)
		return &Transformer{crs: crs, units: UnitMeter, forward: fwd}, nil
	case code == 3035:
		fwd := lambertAzimuthal(52, 10, 4321000, 3210000)
		return &Transformer{crs: crs, units: UnitMeter, forward: fwd}, nil
	case code >= 32601 && code <= 32660:
		fwd := transverseMercator(float64(code-32600)*6-183, 500000, 0)
		return &Transformer{crs: crs, units: UnitMeter, forward: fwd}, nil
	case code >= 32701 && code <= 32760:
		fwd := transverseMercator(float64(code-32700)*6-183, 500000, 10000000)
		return &Transformer{crs: crs, units: UnitMeter, forward: fwd}, nil
	default:
		return nil, eris.Errorf("proj: unsupported CRS code %d", code)
	}
}

// Forward projects a geographic coordinate. Longitude first.
func (t *Transformer) Forward(lon, lat float64) (x, y float64) {
	return t.forward(lon, lat)
}

// Units reports the linear unit of the target CRS.
func (t *Transformer) Units() Units { return t.units }

// CRS returns the target CRS.
func (t *Transformer) CRS() raster.CRS { return t.crs }

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// webMercator is the spherical EPSG:3857 projection.
func webMercator(lon, lat float64) (float64, float64) {
	x := semiMajor * rad(lon)
	y := semiMajor * math.Log(math.Tan(math.Pi/4+rad(lat)/2))
	return x, y
}

// mollweide is the spherical Mollweide projection (ESRI:54009 treats the
// WGS84 semi-major axis as the sphere radius). Theta is found by Newton
// iteration on 2θ + sin 2θ = π sin φ.
func mollweide(lon, lat float64) (float64, float64) {
	phi := rad(lat)
	lam := rad(lon)

	theta := phi
	if math.Abs(lat) < 90 {
		for i := 0; i < 25; i++ {
			d := -(2*theta + math.Sin(2*theta) - math.Pi*math.Sin(phi)) / (2 + 2*math.Cos(2*theta))
			theta += d
			if math.Abs(d) < 1e-12 {
				break
			}
		}
	} else {
		theta = math.Copysign(math.Pi/2, phi)
	}

	x := 2 * math.Sqrt2 / math.Pi * semiMajor * lam * math.Cos(theta)
	y := math.Sqrt2 * semiMajor * math.Sin(theta)
	return x, y
}

// authalicQ is Snyder's q auxiliary for equal-area projections.
func authalicQ(phi float64) float64 {
	s := math.Sin(phi)
	return (1 - e2) * (s/(1-e2*s*s) - 1/(2*e1)*math.Log((1-e1*s)/(1+e1*s)))
}

func bigM(phi float64) float64 {
	return math.Cos(phi) / math.Sqrt(1-e2*math.Sin(phi)*math.Sin(phi))
}

// albersConic builds an ellipsoidal Albers equal-area conic forward transform
// with two standard parallels.
func albersConic(lat0, lon0, sp1, sp2, fe, fn float64) func(float64, float64) (float64, float64) {
	phi0, phi1, phi2 := rad(lat0), rad(sp1), rad(sp2)
	lam0 := rad(lon0)

	m1, m2 := bigM(phi1), bigM(phi2)
	q0, q1, q2 := authalicQ(phi0), authalicQ(phi1), authalicQ(phi2)

	n := (m1*m1 - m2*m2) / (q2 - q1)
	c := m1*m1 + n*q1
	rho0 := semiMajor * math.Sqrt(c-n*q0) / n

	return func(lon, lat float64) (float64, float64) {
		q := authalicQ(rad(lat))
		rho := semiMajor * math.Sqrt(c-n*q) / n
		theta := n * (rad(lon) - lam0)
		x := rho*math.Sin(theta) + fe
		y := rho0 - rho*math.Cos(theta) + fn
		return x, y
	}
}

// lambertAzimuthal builds an ellipsoidal Lambert azimuthal equal-area
// forward transform (oblique aspect).
func lambertAzimuthal(lat0, lon0, fe, fn float64) func(float64, float64) (float64, float64) {
	phi0 := rad(lat0)
	lam0 := rad(lon0)

	qp := authalicQ(math.Pi / 2)
	q0 := authalicQ(phi0)
	beta0 := math.Asin(q0 / qp)
	rq := semiMajor * math.Sqrt(qp/2)
	d := semiMajor * bigM(phi0) / (rq * math.Cos(beta0))

	return func(lon, lat float64) (float64, float64) {
		q := authalicQ(rad(lat))
		beta := math.Asin(q / qp)
		dl := rad(lon) - lam0

		b := rq * math.Sqrt(2/(1+math.Sin(beta0)*math.Sin(beta)+math.Cos(beta0)*math.Cos(beta)*math.Cos(dl)))
		x := b*d*math.Cos(beta)*math.Sin(dl) + fe
		y := b/d*(math.Cos(beta0)*math.Sin(beta)-math.Sin(beta0)*math.Cos(beta)*math.Cos(dl)) + fn
		return x, y
	}
}

// transverseMercator builds an ellipsoidal transverse Mercator forward
// transform (UTM scale factor).
func transverseMercator(lon0, fe, fn float64) func(float64, float64) (float64, float64) {
	const k0 = 0.9996
	lam0 := rad(lon0)
	ep2 := e2 / (1 - e2)

	meridianArc := func(phi float64) float64 {
		return semiMajor * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*phi -
			(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*phi) +
			(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*phi) -
			(35*e2*e2*e2/3072)*math.Sin(6*phi))
	}
	m0 := meridianArc(0)

	return func(lon, lat float64) (float64, float64) {
		phi := rad(lat)
		sinp, cosp := math.Sin(phi), math.Cos(phi)
		tanp := sinp / cosp

		nu := semiMajor / math.Sqrt(1-e2*sinp*sinp)
		t := tanp * tanp
		c := ep2 * cosp * cosp
		a := (rad(lon) - lam0) * cosp
		m := meridianArc(phi)

		x := fe + k0*nu*(a+(1-t+c)*a*a*a/6+
			(5-18*t+t*t+72*c-58*ep2)*a*a*a*a*a/120)
		y := fn + k0*(m-m0+nu*tanp*(a*a/2+(5-t+9*c+4*c*c)*a*a*a*a/24+
			(61-58*t+t*t+600*c-330*ep2)*a*a*a*a*a*a/720))
		return x, y
	}
}
