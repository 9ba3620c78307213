package extract

import "context"

// Supported MIME types, matched exactly and case-sensitively.
const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLS  = "application/vnd.ms-excel"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePPT  = "application/vnd.ms-powerpoint"
	MimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimeText = "text/plain"
	MimeCSV  = "text/csv"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeTIFF = "image/tiff"
	MimeBMP  = "image/bmp"
)

// Dimensions is the pixel size of a raster image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata describes the structure of an extracted file. Which fields are
// populated depends on the format.
type Metadata struct {
	Pages      int         `json:"pages,omitempty"`
	Words      int         `json:"words"`
	Characters int         `json:"characters"`
	Sheets     []string    `json:"sheets,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Result is the output of a successful extraction.
type Result struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Extractor turns the raw bytes of one format into text and metadata.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, data []byte) (Result, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (Result, error) {
	return f(ctx, data)
}
