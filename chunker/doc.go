// Package chunker splits document text into fixed-size, overlapping windows.
//
// Sizes are measured in characters (Unicode code points). Window i starts at
// i*(size-overlap) and spans up to size characters. Every window that starts
// inside the text is emitted, so the final chunk may be shorter than the
// overlap. Text no longer than size yields a single chunk.
//
// Example:
//
//	c, err := chunker.New(1000, 200)
//	if err != nil {
//		return err
//	}
//	for chunk := range c.Chunks(text) {
//		fmt.Println(chunk.Index, chunk.Start, chunk.End)
//	}
package chunker
