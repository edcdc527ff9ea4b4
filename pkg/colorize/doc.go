// Package colorize assigns fill colours to packed circles.
//
// Colouring is the second of two construction stages: the packer produces
// geometry-only [pack.Placement] values, and [Colorize] turns each one into a
// [Circle] with its final fill. A circle's colour is therefore set exactly
// once and never mutated.
//
// With a [Sampler], each circle takes the colour of the source pixel under
// its centre. Canvas coordinates are scaled independently on each axis to the
// sampler's pixel grid and floored:
//
//	ix = floor(imageWidth  / canvasWidth * X)
//	iy = floor(imageHeight / canvasWidth * Y)
//
// Fills are always written as four 8-bit non-premultiplied channels,
// "rgba(r,g,b,a)", whatever the source pixel format. Without a sampler every
// circle is [DefaultFill].
//
// [Open] decodes PNG, JPEG, GIF, BMP, TIFF and WebP sources, applying EXIF
// orientation for JPEG photos.
package colorize
