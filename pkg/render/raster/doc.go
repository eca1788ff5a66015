// Package raster draws slide trees into bitmaps with fogleman/gg.
//
// It needs no external tools, so it is the default export backend. Text is
// drawn with the same Go fonts the layout was measured with, which keeps
// line breaks identical to the layout. Glyphs the Go fonts lack, most
// visibly emoji, are skipped; inline custom emoji are images and draw fine.
package raster
