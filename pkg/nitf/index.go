package nitf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dhconnelly/rtreego"
)

// footprintEpsilon pads point and line footprints, which the R-tree cannot
// store with zero extent.
const footprintEpsilon = 1e-9

// Footprint is the ground coverage of one image block, taken from its
// BLOCKA corner locations.
type Footprint struct {
	Name      string   // Caller supplied label, usually the source file
	Instance  int      // BLOCK_INSTANCE
	Corners   [4]Point // First row first column, then clockwise: FRLC, LRLC, LRFC
	GeoBounds Bounds   // Smallest bounds containing the corners
}

// Bounds method for rtreego.Spatial interface.
func (f Footprint) Bounds() rtreego.Rect {
	return rectOf(f.GeoBounds)
}

func rectOf(b Bounds) rtreego.Rect {
	point := rtreego.Point{b.MinLon, b.MinLat}
	lengths := []float64{
		max(b.MaxLon-b.MinLon, footprintEpsilon),
		max(b.MaxLat-b.MinLat, footprintEpsilon),
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// FootprintFromBLOCKA extracts the footprint of a parsed BLOCKA TRE.
//
// Locations are read in either decimal degrees (±dd.dddddd±ddd.dddddd) or
// degrees, minutes and seconds (±ddmmss.ss±dddmmss.ss). A blank location
// means the corner is not known and the footprint cannot be built.
func FootprintFromBLOCKA(name string, tree *Tree) (Footprint, error) {
	if tree == nil || tree.Tag() != "BLOCKA" {
		return Footprint{}, fmt.Errorf("footprint: not a BLOCKA tree")
	}
	instance, err := tree.Int("BLOCK_INSTANCE")
	if err != nil {
		return Footprint{}, fmt.Errorf("footprint: %w", err)
	}

	fp := Footprint{Name: name, Instance: int(instance)}
	for i, field := range []string{"FRFC_LOC", "FRLC_LOC", "LRLC_LOC", "LRFC_LOC"} {
		text, err := tree.Text(field)
		if err != nil {
			return Footprint{}, fmt.Errorf("footprint: %w", err)
		}
		p, err := ParseLocation(text)
		if err != nil {
			return Footprint{}, fmt.Errorf("footprint %s: %w", field, err)
		}
		fp.Corners[i] = p
	}
	fp.GeoBounds = BoundsOf(fp.Corners[:]...)
	return fp, nil
}

// ParseLocation decodes a 21 character latitude/longitude pair.
func ParseLocation(s string) (Point, error) {
	if len(s) != 21 {
		return Point{}, fmt.Errorf("location %q: want 21 characters, got %d", s, len(s))
	}
	if strings.TrimSpace(s) == "" {
		return Point{}, fmt.Errorf("location is blank")
	}
	lat, err := parseAngle(s[:10], 2)
	if err != nil {
		return Point{}, fmt.Errorf("location %q latitude: %w", s, err)
	}
	lon, err := parseAngle(s[10:], 3)
	if err != nil {
		return Point{}, fmt.Errorf("location %q longitude: %w", s, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Point{}, fmt.Errorf("location %q out of range", s)
	}
	return Point{Lon: lon, Lat: lat}, nil
}

// parseAngle reads a signed angle whose degrees take degDigits characters.
// A decimal point right after the degrees means decimal degrees; otherwise
// the text is degrees, minutes and seconds.
func parseAngle(s string, degDigits int) (float64, error) {
	var sign float64
	switch s[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("%q has no sign", s)
	}
	body := s[1:]
	for _, c := range body {
		if c != '.' && (c < '0' || c > '9') {
			return 0, fmt.Errorf("%q is not numeric", s)
		}
	}

	if body[degDigits] == '.' {
		v, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", s, err)
		}
		return sign * v, nil
	}

	deg, err1 := strconv.Atoi(body[:degDigits])
	mins, err2 := strconv.Atoi(body[degDigits : degDigits+2])
	secs, err3 := strconv.ParseFloat(body[degDigits+2:], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("%q is not ±d..mmss.ss", s)
	}
	if mins >= 60 || secs >= 60 {
		return 0, fmt.Errorf("%q has minutes or seconds out of range", s)
	}
	return sign * (float64(deg) + float64(mins)/60 + secs/3600), nil
}

// FootprintIndex provides fast spatial queries over image block footprints.
//
// Footprints are kept in an R-tree, so a query only visits blocks near the
// region of interest.
//
// Example:
//
//	idx := nitf.BuildIndex(footprints)
//	hits := idx.Query(nitf.Bounds{MinLon: -71.5, MaxLon: -71.0, MinLat: 42.0, MaxLat: 42.5})
type FootprintIndex struct {
	footprints []Footprint
	rtree      *rtreego.Rtree
}

// BuildIndex creates an index over footprints.
func BuildIndex(footprints []Footprint) *FootprintIndex {
	entries := append([]Footprint(nil), footprints...)

	// Create R-tree (2D, min=25 children, max=50 children)
	rtree := rtreego.NewTree(2, 25, 50)
	for _, fp := range entries {
		rtree.Insert(fp)
	}

	return &FootprintIndex{
		footprints: entries,
		rtree:      rtree,
	}
}

// Query returns the footprints intersecting bounds, ordered by name and then
// block instance.
func (idx *FootprintIndex) Query(bounds Bounds) []Footprint {
	if !bounds.Valid() {
		return nil
	}

	var result []Footprint
	for _, spatial := range idx.rtree.SearchIntersect(rectOf(bounds)) {
		fp := spatial.(Footprint)
		// The R-tree works on padded rectangles; confirm against the real edges.
		if !bounds.Intersects(fp.GeoBounds) {
			continue
		}
		result = append(result, fp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Instance < result[j].Instance
	})

	return result
}

// Count returns the total number of footprints in the index.
func (idx *FootprintIndex) Count() int {
	return len(idx.footprints)
}

// Bounds returns the union of all footprint bounds in the index.
func (idx *FootprintIndex) Bounds() Bounds {
	if len(idx.footprints) == 0 {
		return Bounds{}
	}

	bounds := idx.footprints[0].GeoBounds
	for i := 1; i < len(idx.footprints); i++ {
		bounds = bounds.Union(idx.footprints[i].GeoBounds)
	}

	return bounds
}

// All returns all footprints in the index.
func (idx *FootprintIndex) All() []Footprint {
	return idx.footprints
}
