package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const formatPowerPoint = "PowerPoint file"

// PowerPointExtractor reads slide text from pptx. When the bytes are not a
// presentation but are clean UTF-8 text, they are returned as plain text.
// Binary .ppt files fail.
type PowerPointExtractor struct{}

func (PowerPointExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	text, err := readSlides(data)
	if err == nil {
		return textResult(text), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if isPlainText(data) {
		return textResult(string(data)), nil
	}
	if isOLE(data) {
		return Result{}, fail(formatPowerPoint, errors.New("legacy binary .ppt format is not supported"))
	}
	return Result{}, fail(formatPowerPoint, err)
}

func readSlides(data []byte) (string, error) {
	if !isZip(data) {
		return "", errors.New("not an Office Open XML presentation")
	}
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}

	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		dir, file := path.Split(name)
		if dir != "ppt/slides/" || !strings.HasPrefix(file, "slide") || !strings.HasSuffix(file, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file, "slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{n: n, name: name})
	}
	if len(slides) == 0 {
		return "", errors.New("no slides found")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		raw, err := readZipEntry(zr, s.name)
		if err != nil {
			return "", err
		}
		text, err := ooxmlText(raw)
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.n, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func isPlainText(data []byte) bool {
	return len(data) > 0 && utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}
