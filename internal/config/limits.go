package config

const (
	// MaxDocumentTitleLength is the maximum length for document titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDocumentTitleLength = 255

	// MaxDocumentIconLength bounds the icon field. Icons are emoji or short
	// references, never payloads.
	MaxDocumentIconLength = 64

	// MaxRewriteToneLength and MaxRewriteLengthHint bound the optional rewrite hints
	// that are interpolated into the prompt.
	MaxRewriteToneLength = 64
	MaxRewriteLengthHint = 64
)
