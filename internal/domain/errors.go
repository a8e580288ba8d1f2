package domain

import "errors"

var (
	// ErrEmptyDocument signals an upload that produced no indexable chunks.
	ErrEmptyDocument = errors.New("document produced no chunks")
	// ErrIndexBuildFailed signals an embedding failure during index construction.
	ErrIndexBuildFailed = errors.New("index build failed")
	// ErrModelUnavailable signals that the generation backend is missing or broken.
	ErrModelUnavailable = errors.New("generation model unavailable")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrUnsupportedFormat signals a file type no loader can handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
