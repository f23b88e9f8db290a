package ingest

// Metadata travels with every page and chunk from extraction to retrieval.
type Metadata struct {
	DocumentName string
	SourcePath   string
	PageNumber   int
	SourceType   string
}

// Page is the unit of extraction: one text file, or one PDF page.
type Page struct {
	Content  string
	Metadata Metadata
}

// Chunk is an overlapping window of a page, the unit of indexing.
type Chunk struct {
	ID         string
	Text       string
	StartIndex int
	Metadata   Metadata
}
