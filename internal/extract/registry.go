package extract

import (
	"fmt"
	"sync"
)

// Registry maps MIME types to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
	order      []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Options configures the default registry.
type Options struct {
	// Recognizer performs OCR for image formats. Without one, images fail to extract.
	Recognizer Recognizer
}

// NewDefaultRegistry registers an extractor for every supported MIME type.
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	word := WordExtractor{}
	excel := ExcelExtractor{}
	slides := PowerPointExtractor{}
	img := ImageExtractor{Recognizer: opts.Recognizer}

	r.MustRegister(MimePDF, PDFExtractor{})
	r.MustRegister(MimeDOC, word)
	r.MustRegister(MimeDOCX, word)
	r.MustRegister(MimeXLS, excel)
	r.MustRegister(MimeXLSX, excel)
	r.MustRegister(MimePPT, slides)
	r.MustRegister(MimePPTX, slides)
	r.MustRegister(MimeText, TextExtractor{})
	r.MustRegister(MimeCSV, CSVExtractor{})
	r.MustRegister(MimeJPEG, img)
	r.MustRegister(MimePNG, img)
	r.MustRegister(MimeTIFF, img)
	r.MustRegister(MimeBMP, img)
	return r
}

// Register adds an extractor for mime. Registering the same type twice is an error.
func (r *Registry) Register(mime string, ex Extractor) error {
	if mime == "" || ex == nil {
		return fmt.Errorf("register extractor: mime type and extractor are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.extractors[mime]; exists {
		return fmt.Errorf("register extractor: %s already registered", mime)
	}
	r.extractors[mime] = ex
	r.order = append(r.order, mime)
	return nil
}

// MustRegister is Register that panics on error, for static wiring.
func (r *Registry) MustRegister(mime string, ex Extractor) {
	if err := r.Register(mime, ex); err != nil {
		panic(err)
	}
}

// Lookup returns the extractor registered for mime.
func (r *Registry) Lookup(mime string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.extractors[mime]
	return ex, ok
}

// Supports reports whether mime has a registered extractor.
func (r *Registry) Supports(mime string) bool {
	_, ok := r.Lookup(mime)
	return ok
}

// Supported lists registered MIME types in registration order.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
