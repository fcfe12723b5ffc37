package constants

// ExtractionMethod records how text was obtained from a PDF.
type ExtractionMethod string

const (
	MethodDirect       ExtractionMethod = "DIRECT"        // embedded text layer
	MethodOCR          ExtractionMethod = "OCR"           // rasterized + recognized
	MethodDirectFailed ExtractionMethod = "DIRECT_FAILED" // direct too thin, OCR unavailable or empty
	MethodUnknown      ExtractionMethod = "UNKNOWN"
)

// ConfidenceTag is a coarse provenance label on extracted text,
// not a numeric probability.
type ConfidenceTag string

const (
	ConfidenceHighDirect   ConfidenceTag = "HIGH_DIRECT"
	ConfidenceOCRCompleted ConfidenceTag = "OCR_COMPLETED"
	ConfidenceNA           ConfidenceTag = "N/A"
)
