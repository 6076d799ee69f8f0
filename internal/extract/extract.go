// Package extract pulls plain text out of uploaded documents. PDF goes
// through ledongthuc/pdf; the OOXML family (docx/xlsx/pptx) is read as a zip
// of XML parts; txt and md pass through unchanged.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported indicates the file type has no text extractor.
var ErrUnsupported = errors.New("unsupported file type for extraction")

// Result is the outcome of a text extraction.
type Result struct {
	Text      string
	PageCount *int
}

// FromBytes extracts text from an in-memory payload. fileType is the
// document type id recorded at upload (pdf, docx, xlsx, pptx, txt, md).
func FromBytes(data []byte, fileType string) (Result, error) {
	switch fileType {
	case "pdf":
		return extractPDF(data)
	case "docx", "doc":
		text, err := extractDOCX(data)
		return Result{Text: text}, err
	case "xlsx", "xls":
		text, err := extractXLSX(data)
		return Result{Text: text}, err
	case "pptx", "ppt":
		text, err := extractPPTX(data)
		return Result{Text: text}, err
	case "txt", "md":
		return Result{Text: string(data)}, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, fileType)
	}
}

func extractPDF(data []byte) (Result, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return Result{}, err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Result{}, err
	}
	pages := pdfReader.NumPage()
	return Result{Text: buf.String(), PageCount: &pages}, nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}
	raw, err := readZipPart(zr, "word/document.xml")
	if err != nil {
		return "", err
	}
	return stripXML(raw, "p", "br"), nil
}

func extractXLSX(data []byte) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}

	// Shared strings first, then each worksheet in name order. Cell values
	// stored inline come out of the worksheet XML chardata directly.
	var parts []string
	if raw, err := readZipPart(zr, "xl/sharedStrings.xml"); err == nil {
		parts = append(parts, stripXML(raw, "si"))
	}
	var sheets []string
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasPrefix(name, "xl/worksheets/") && strings.HasSuffix(name, ".xml") {
			sheets = append(sheets, name)
		}
	}
	if len(sheets) == 0 && len(parts) == 0 {
		return "", errors.New("no worksheet data found")
	}
	sort.Strings(sheets)
	for _, name := range sheets {
		raw, err := readZipPart(zr, name)
		if err != nil {
			return "", err
		}
		parts = append(parts, stripXML(raw, "row"))
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func extractPPTX(data []byte) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}

	var slides []string
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			slides = append(slides, name)
		}
	}
	if len(slides) == 0 {
		return "", errors.New("no slides found")
	}
	sort.Strings(slides)

	var parts []string
	for _, name := range slides {
		raw, err := readZipPart(zr, name)
		if err != nil {
			return "", err
		}
		parts = append(parts, stripXML(raw, "p", "br"))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}

func openZip(data []byte) (*zip.Reader, error) {
	if len(data) == 0 {
		return nil, errors.New("empty document data")
	}
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

func readZipPart(zr *zip.Reader, want string) ([]byte, error) {
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == want {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not found in archive", want)
}

// stripXML collects character data, inserting a newline after each of the
// named closing elements.
func stripXML(raw []byte, breakElements ...string) string {
	breaks := make(map[string]bool, len(breakElements))
	for _, e := range breakElements {
		breaks[e] = true
	}

	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return string(raw)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if breaks[t.Name.Local] && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
