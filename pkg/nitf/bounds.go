package nitf

// Bounds represents a geographic bounding box in WGS-84 coordinates.
//
// Coordinates are in decimal degrees.
type Bounds struct {
	MinLon float64 // Western edge
	MaxLon float64 // Eastern edge
	MinLat float64 // Southern edge
	MaxLat float64 // Northern edge
}

// Point is a geographic position in decimal degrees.
type Point struct {
	Lon float64
	Lat float64
}

// BoundsOf returns the smallest bounds containing every point.
func BoundsOf(points ...Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{MinLon: points[0].Lon, MaxLon: points[0].Lon, MinLat: points[0].Lat, MaxLat: points[0].Lat}
	for _, p := range points[1:] {
		b.MinLon = min(b.MinLon, p.Lon)
		b.MaxLon = max(b.MaxLon, p.Lon)
		b.MinLat = min(b.MinLat, p.Lat)
		b.MaxLat = max(b.MaxLat, p.Lat)
	}
	return b
}

// Valid reports whether the minimum edges do not exceed the maximum edges.
func (b Bounds) Valid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat
}

// Contains returns true if the point (lon, lat) is within the bounds.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon &&
		lat >= b.MinLat && lat <= b.MaxLat
}

// Intersects returns true if the given bounds intersects with this bounds.
func (b Bounds) Intersects(other Bounds) bool {
	return !(other.MaxLon < b.MinLon ||
		other.MinLon > b.MaxLon ||
		other.MaxLat < b.MinLat ||
		other.MinLat > b.MaxLat)
}

// Union returns the smallest bounds containing both.
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		MinLon: min(b.MinLon, other.MinLon),
		MaxLon: max(b.MaxLon, other.MaxLon),
		MinLat: min(b.MinLat, other.MinLat),
		MaxLat: max(b.MaxLat, other.MaxLat),
	}
}

// Expand returns a new Bounds expanded by the given margin in all directions.
//
// Margin is in decimal degrees.
func (b Bounds) Expand(margin float64) Bounds {
	return Bounds{
		MinLon: b.MinLon - margin,
		MaxLon: b.MaxLon + margin,
		MinLat: b.MinLat - margin,
		MaxLat: b.MaxLat + margin,
	}
}
