// Package imaging provides the image operations the dental pipeline needs:
// decoding uploads, cutting tooth crops, contrast enhancement, drawing
// annotated boxes and encoding results for transport.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// Every function is stateless and returns a new image; inputs are never
// modified. Functions may be called concurrently.
//
// # Annotation Colours
//
// Boxes are outlined in a colour chosen from the classifier label (see
// LabelColor). Labels without a palette entry are drawn in red.
package imaging
