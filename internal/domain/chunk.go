package domain

// Segment is one raw text segment produced by a document loader,
// typically a page. Page is 1-based; 0 means unknown.
type Segment struct {
	Text string
	Page int
}

// Chunk is the smallest retrievable unit of document text.
// Chunks are immutable once produced by the splitter; ordering within a
// document is the splitter's insertion order.
type Chunk struct {
	Text     string
	SourceID string
	Page     int // 0 when the loader could not attribute a page
}
