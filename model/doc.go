// Package model holds the geometry and element vocabulary shared by the
// loader and the content-stream interpreter.
//
// # Geometry
//
//   - [BBox] - bounding box with intersection, union and overlap calculations
//   - [Point] - 2D point with distance calculation
//   - [Matrix] - 2D affine transformation in row-vector form [a b c d e f];
//     m.Multiply(n) applies m first, then n
//
// # Elements
//
// Every drawn primitive implements [Element]; the concrete Path, Text and
// Image types live in the contentstream package, next to the graphics
// state they carry.
package model
