// Package irregular solves packing problems over arbitrary polygons with
// optional circular arcs. Exact geometric intersection is a collaborator
// concern: the shipped placement primitive works on conservative bounding
// boxes, so produced solutions never overlap even for non-convex shapes.
package irregular

import "math"

// Point is a vertex in the plane. Irregular geometry is continuous.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShapeElementType tags a border element.
type ShapeElementType string

const (
	ShapeElementLine ShapeElementType = "line"
	ShapeElementArc  ShapeElementType = "arc"
)

// ShapeElement is one border element of a shape: a segment or a circular
// arc.
type ShapeElement struct {
	Type   ShapeElementType `json:"type"`
	Start  Point            `json:"start"`
	End    Point            `json:"end"`
	Center Point            `json:"center,omitempty"`

	// Anticlockwise orients arcs.
	Anticlockwise bool `json:"anticlockwise,omitempty"`
}

// Shape is a closed border described by its elements, in order.
type Shape struct {
	Elements []ShapeElement `json:"elements"`
}

// BBox returns the axis-aligned bounding box of the shape. Arcs are boxed
// by their chord and their extreme circle points.
func (s Shape) BBox() (xMin, yMin, xMax, yMax float64) {
	xMin, yMin = math.Inf(1), math.Inf(1)
	xMax, yMax = math.Inf(-1), math.Inf(-1)
	grow := func(p Point) {
		xMin = math.Min(xMin, p.X)
		yMin = math.Min(yMin, p.Y)
		xMax = math.Max(xMax, p.X)
		yMax = math.Max(yMax, p.Y)
	}
	for _, element := range s.Elements {
		grow(element.Start)
		grow(element.End)
		if element.Type == ShapeElementArc {
			radius := math.Hypot(element.Start.X-element.Center.X, element.Start.Y-element.Center.Y)
			grow(Point{element.Center.X - radius, element.Center.Y - radius})
			grow(Point{element.Center.X + radius, element.Center.Y + radius})
		}
	}
	if len(s.Elements) == 0 {
		return 0, 0, 0, 0
	}
	return xMin, yMin, xMax, yMax
}

// Area returns the enclosed area. Line borders use the shoelace formula;
// arcs add their circular-segment correction.
func (s Shape) Area() float64 {
	area := 0.0
	for _, element := range s.Elements {
		area += (element.Start.X*element.End.Y - element.End.X*element.Start.Y) / 2
		if element.Type == ShapeElementArc {
			radius := math.Hypot(element.Start.X-element.Center.X, element.Start.Y-element.Center.Y)
			a0 := math.Atan2(element.Start.Y-element.Center.Y, element.Start.X-element.Center.X)
			a1 := math.Atan2(element.End.Y-element.Center.Y, element.End.X-element.Center.X)
			sweep := a1 - a0
			if element.Anticlockwise && sweep < 0 {
				sweep += 2 * math.Pi
			}
			if !element.Anticlockwise && sweep > 0 {
				sweep -= 2 * math.Pi
			}
			area += radius * radius * (sweep - math.Sin(sweep)) / 2
		}
	}
	return math.Abs(area)
}

// Rotate returns the shape rotated by the angle (degrees) around the
// origin.
func (s Shape) Rotate(angle float64) Shape {
	if angle == 0 {
		return s
	}
	radians := angle * math.Pi / 180
	sin, cos := math.Sin(radians), math.Cos(radians)
	rotate := func(p Point) Point {
		return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
	}
	rotated := Shape{Elements: make([]ShapeElement, len(s.Elements))}
	for i, element := range s.Elements {
		rotated.Elements[i] = ShapeElement{
			Type:          element.Type,
			Start:         rotate(element.Start),
			End:           rotate(element.End),
			Center:        rotate(element.Center),
			Anticlockwise: element.Anticlockwise,
		}
	}
	return rotated
}

// RectangleShape builds a rectangular shape, the degenerate case used by
// tests and by bin floors.
func RectangleShape(width, height float64) Shape {
	corners := []Point{{0, 0}, {width, 0}, {width, height}, {0, height}}
	shape := Shape{}
	for i := range corners {
		shape.Elements = append(shape.Elements, ShapeElement{
			Type:  ShapeElementLine,
			Start: corners[i],
			End:   corners[(i+1)%len(corners)],
		})
	}
	return shape
}
