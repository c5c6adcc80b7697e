// Package graphicsstate holds the drawing context of the content-stream
// interpreter and the geometry it paints.
//
// # Graphics State
//
// GraphicsState is a value type tracking:
//   - the CTM, mapping user space to page space
//   - fill and stroke colors, each tagged with its color space
//   - line width, cap, join, miter limit and dash pattern
//   - constant alpha and the soft mask
//   - the clip bounding box, which only ever shrinks
//   - the text state (font, spacing, matrices)
//
// A Stack implements q and Q. Saving copies the state, so snapshots taken
// for emitted elements never change afterwards; restoring with nothing
// saved keeps the current state and is counted instead of failing.
//
//	s := graphicsstate.NewStack(graphicsstate.NewGraphicsState())
//	s.Save()                                  // q
//	s.Current().Transform(model.Scale(2, 2))  // cm
//	s.Restore()                               // Q
//
// # Paths and Rasterization
//
// Path accumulates m, l, c, v, y, re and h in user space. Rasterize turns
// a painted path into an alpha buffer with the nonzero or even-odd rule,
// stroke coverage, constant alpha, clip box and soft mask applied; it is
// used where exact shapes matter, such as building soft masks.
package graphicsstate
