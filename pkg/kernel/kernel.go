// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx today) provide solid primitives, boolean union,
// and rigid transforms behind this interface, so the layout engine never
// depends on a specific modeling backend.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
//
// Box and Union return errors so that backends (and test doubles) can report
// primitive-creation and boolean failures; the layout engine maps these onto
// its own error taxonomy.
type Kernel interface {
	// Box creates a box of the given dimensions centered at the origin.
	Box(width, depth, height float64) (Solid, error)

	// Union merges b into a, returning the boolean union.
	Union(a, b Solid) (Solid, error)

	// Translate moves a solid by (x, y, z).
	Translate(s Solid, x, y, z float64) Solid

	// Rotate rotates a solid by Euler angles in degrees, composed Rz·Ry·Rx.
	Rotate(s Solid, x, y, z float64) Solid

	// ToMesh tessellates a solid into a triangle mesh.
	ToMesh(s Solid) (*Mesh, error)
}
