// Package export writes a deck of rendered slides to numbered files.
//
// A [Coordinator] walks the slides strictly in order. For each one it
// strips any preview presentation from the tree ([Neutralize]), hands it to
// a [Rasterizer] at the target pixel size and writes the bytes through a
// [Sink] as "01.jpg", "02.jpg", ... The first failure stops the batch;
// slides after it are never attempted.
//
//	c := export.NewCoordinator(rasterizer, export.DirSink(dir), export.DefaultOptions())
//	res, err := c.ExportAll(ctx, slides)
//
// Sinks:
//
//   - [DirSink]: files in a directory
//   - [ZipSink]: entries of a zip archive, for HTTP downloads
//   - [MemorySink]: in-memory, for tests and previews
package export
