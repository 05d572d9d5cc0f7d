// Package scene models the host document the relief geometry is committed
// into: containers holding solid bodies, with committed solids tracked as
// features. Document is an in-memory implementation of the Host interface;
// the pipeline only mutates it after a build has succeeded, so a failed or
// abandoned preview never leaves partial state behind.
package scene

import (
	"errors"
	"fmt"

	"github.com/chiselcad/qrelief/pkg/kernel"
	"github.com/google/uuid"
)

// ErrCommit is returned when the document refuses to commit geometry.
var ErrCommit = errors.New("feature commit failed")

// ErrNotFound is returned when a handle does not resolve to an entity.
var ErrNotFound = errors.New("entity not found")

// Body is a named solid inside a container.
type Body struct {
	ID    uuid.UUID
	Name  string
	Solid kernel.Solid
}

// Feature records one committed solid: the permanent result of a build.
type Feature struct {
	ID        uuid.UUID
	Name      string
	Container uuid.UUID
	Body      *Body
}

// Container is a named group of bodies, analogous to a CAD component.
type Container struct {
	ID     uuid.UUID
	Name   string
	Bodies []*Body
}

// Host is the narrow interface the pipeline drives the scene through.
// Implementations must not mutate state when an operation fails.
type Host interface {
	// CreateContainer adds a new empty container to the scene.
	CreateContainer(name string) (*Container, error)

	// CopySiblingBodies copies every body of src into dst, so the committed
	// relief sits next to copies of the geometry it was built against.
	CopySiblingBodies(src, dst *Container) error

	// CommitSolidAsFeature embeds a finished solid into dst as a named body
	// and returns the feature record. Ownership of the solid transfers to
	// the host.
	CommitSolidAsFeature(dst *Container, solid kernel.Solid, name string) (*Feature, error)

	// Rename changes the display name of a container or body.
	Rename(id uuid.UUID, name string) error
}

// Compile-time interface check.
var _ Host = (*Document)(nil)

// Document is the in-memory scene. It is not safe for concurrent use;
// all operations happen on the single command goroutine.
type Document struct {
	containers []*Container
	features   []*Feature
}

// NewDocument returns an empty scene document.
func NewDocument() *Document {
	return &Document{}
}

// Containers returns the containers in creation order.
func (d *Document) Containers() []*Container {
	return d.containers
}

// Features returns the committed features in commit order.
func (d *Document) Features() []*Feature {
	return d.features
}

// FindContainer returns the container with the given name, or nil.
func (d *Document) FindContainer(name string) *Container {
	for _, c := range d.containers {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// CreateContainer adds a new empty container to the scene.
func (d *Document) CreateContainer(name string) (*Container, error) {
	if name == "" {
		return nil, fmt.Errorf("container name must not be empty")
	}
	c := &Container{ID: uuid.New(), Name: name}
	d.containers = append(d.containers, c)
	return c, nil
}

// AddBody places a solid into a container as a named body. It is how test
// fixtures and importers seed sibling geometry.
func (d *Document) AddBody(c *Container, name string, solid kernel.Solid) *Body {
	b := &Body{ID: uuid.New(), Name: name, Solid: solid}
	c.Bodies = append(c.Bodies, b)
	return b
}

// CopySiblingBodies copies every body of src into dst. Copies get fresh IDs
// but keep their names; the solids are shared handles, since kernel solids
// are immutable values.
func (d *Document) CopySiblingBodies(src, dst *Container) error {
	if src == nil || dst == nil {
		return fmt.Errorf("copy bodies: %w", ErrNotFound)
	}
	for _, b := range src.Bodies {
		dst.Bodies = append(dst.Bodies, &Body{
			ID:    uuid.New(),
			Name:  b.Name,
			Solid: b.Solid,
		})
	}
	return nil
}

// CommitSolidAsFeature embeds a solid into dst as a body and records the
// feature. A nil solid or missing container fails with ErrCommit and leaves
// the document untouched.
func (d *Document) CommitSolidAsFeature(dst *Container, solid kernel.Solid, name string) (*Feature, error) {
	if dst == nil {
		return nil, fmt.Errorf("commit %q: no destination container: %w", name, ErrCommit)
	}
	if solid == nil {
		return nil, fmt.Errorf("commit %q: nil solid: %w", name, ErrCommit)
	}
	body := &Body{ID: uuid.New(), Name: name, Solid: solid}
	f := &Feature{ID: uuid.New(), Name: name, Container: dst.ID, Body: body}
	dst.Bodies = append(dst.Bodies, body)
	d.features = append(d.features, f)
	return f, nil
}

// Rename changes the display name of a container or body by handle.
func (d *Document) Rename(id uuid.UUID, name string) error {
	for _, c := range d.containers {
		if c.ID == id {
			c.Name = name
			return nil
		}
		for _, b := range c.Bodies {
			if b.ID == id {
				b.Name = name
				return nil
			}
		}
	}
	return fmt.Errorf("rename %s: %w", id, ErrNotFound)
}
