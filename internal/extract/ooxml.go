package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

func isZip(data []byte) bool { return bytes.HasPrefix(data, zipMagic) }

// isOLE reports a Compound File Binary container (legacy .doc/.xls/.ppt).
func isOLE(data []byte) bool { return bytes.HasPrefix(data, oleMagic) }

func openZip(data []byte) (*zip.Reader, error) {
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

// ooxmlText collects the character data of text runs (w:t, a:t). Paragraph
// ends and explicit breaks become newlines and run-level tabs become tabs.
func ooxmlText(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	var stack []string
	parent := func() string {
		if len(stack) < 2 {
			return ""
		}
		return stack[len(stack)-2]
	}
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			switch t.Name.Local {
			case "tab":
				if parent() == "r" {
					buf.WriteByte('\t')
				}
			case "br", "cr":
				if p := parent(); p == "r" || p == "p" {
					buf.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if t.Name.Local == "p" {
				buf.WriteByte('\n')
			}
		case xml.CharData:
			if len(stack) > 0 && stack[len(stack)-1] == "t" {
				buf.Write(t)
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
