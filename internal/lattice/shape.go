// Package lattice defines the fixed index space shared by every field of the
// simulation and the immutable snapshots handed to consumers.
//
// All fields are stored flat in row-major (x, y, z) order, the same layout a
// dense (X, Y, Z) array would use. A Shape with Z == 1 is planar: stencils use
// the four in-plane neighbors and z is not a boundary axis.
package lattice

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a shape cannot describe a lattice.
var ErrShape = errors.New("lattice: invalid shape")

// Shape is the extent of the lattice along each axis.
type Shape struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Len returns the number of cells.
func (s Shape) Len() int {
	return s.X * s.Y * s.Z
}

// Planar reports whether the lattice is a single z layer.
func (s Shape) Planar() bool {
	return s.Z == 1
}

// Degree returns the number of axis-aligned neighbors of an interior cell.
func (s Shape) Degree() int {
	if s.Planar() {
		return 4
	}
	return 6
}

// Index returns the flat offset of (x, y, z).
func (s Shape) Index(x, y, z int) int {
	return (x*s.Y+y)*s.Z + z
}

// Coord is the inverse of Index.
func (s Shape) Coord(i int) (x, y, z int) {
	z = i % s.Z
	i /= s.Z
	y = i % s.Y
	x = i / s.Y
	return x, y, z
}

// InBounds reports whether (x, y, z) addresses a cell.
func (s Shape) InBounds(x, y, z int) bool {
	return x >= 0 && x < s.X && y >= 0 && y < s.Y && z >= 0 && z < s.Z
}

// Interior reports whether (x, y, z) is strictly inside the frozen boundary.
func (s Shape) Interior(x, y, z int) bool {
	if x < 1 || x > s.X-2 || y < 1 || y > s.Y-2 {
		return false
	}
	if s.Planar() {
		return z == 0
	}
	return z >= 1 && z <= s.Z-2
}

// ZRange returns the half-open z interval of interior cells.
func (s Shape) ZRange() (lo, hi int) {
	if s.Planar() {
		return 0, 1
	}
	return 1, s.Z - 1
}

// InteriorLen returns the number of interior cells. It is zero when any
// active axis is shorter than three cells.
func (s Shape) InteriorLen() int {
	zlo, zhi := s.ZRange()
	nx, ny, nz := s.X-2, s.Y-2, zhi-zlo
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return 0
	}
	return nx * ny * nz
}

// Strides returns the flat offsets of a unit step along x, y and z.
func (s Shape) Strides() (sx, sy, sz int) {
	return s.Y * s.Z, s.Z, 1
}

// NeighborOffsets returns the flat offsets of the axis-aligned neighbors of a
// cell, in -x, +x, -y, +y[, -z, +z] order. Only valid for interior cells.
func (s Shape) NeighborOffsets() []int {
	sx, sy, sz := s.Strides()
	if s.Planar() {
		return []int{-sx, sx, -sy, sy}
	}
	return []int{-sx, sx, -sy, sy, -sz, sz}
}

// Validate checks that the shape has an interior. Planar shapes need at least
// three cells along x and y; volumetric shapes need three along every axis.
func (s Shape) Validate() error {
	if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%dx%d", ErrShape, s.X, s.Y, s.Z)
	}
	if s.X < 3 || s.Y < 3 || (!s.Planar() && s.Z < 3) {
		return fmt.Errorf("%w: %dx%dx%d has no interior (need at least 3 cells per axis)", ErrShape, s.X, s.Y, s.Z)
	}
	return nil
}

// String formats the shape as XxYxZ.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z)
}
