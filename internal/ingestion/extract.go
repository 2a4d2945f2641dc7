// Package ingestion turns uploaded resume documents (PDF, DOCX or plain text) into clean text
// for the profile-extraction prompt.
package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatText = "text"
)

// MaxDocumentBytes bounds an uploaded resume.
const MaxDocumentBytes = 10 << 20

// DetectFormat sniffs the document type from its leading bytes, falling back to the file
// extension.
func DetectFormat(data []byte, fileName string) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")) && hasZipEntry(data, "word/document.xml"):
		return FormatDOCX
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt", ".md", ".markdown", "":
		return FormatText
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}

// ExtractText returns the cleaned text of a document.
func ExtractText(ctx context.Context, data []byte, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) > MaxDocumentBytes {
		return "", &ExtractError{Format: fileName, Message: fmt.Sprintf("document exceeds %d bytes", MaxDocumentBytes)}
	}

	var (
		text   string
		err    error
		format = DetectFormat(data, fileName)
	)
	switch format {
	case FormatPDF:
		text, err = ExtractPDFText(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatText:
		text = string(data)
	default:
		return "", &UnsupportedFormatError{Format: format}
	}
	if err != nil {
		return "", err
	}

	text = CleanText(text)
	if text == "" {
		return "", &ExtractError{Format: format, Message: "document has no text"}
	}
	return text, nil
}

// ExtractFile reads path and returns its cleaned text.
func ExtractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return ExtractText(ctx, data, filepath.Base(path))
}

// ExtractPDFText returns the plain text layer of a PDF, one text row per line.
func ExtractPDFText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &ExtractError{Format: FormatPDF, Message: fmt.Sprintf("malformed PDF: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractError{Format: FormatPDF, Message: "invalid PDF", Cause: err}
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", &ExtractError{Format: FormatPDF, Message: fmt.Sprintf("reading page %d", i), Cause: err}
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractError{Format: FormatDOCX, Message: "invalid archive", Cause: err}
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", &ExtractError{Format: FormatDOCX, Message: "opening document.xml", Cause: err}
		}
		defer func() { _ = rc.Close() }()
		return docxText(rc)
	}
	return "", &ExtractError{Format: FormatDOCX, Message: "document.xml not found"}
}

// docxText concatenates character data, breaking lines at paragraphs and explicit breaks.
func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &ExtractError{Format: FormatDOCX, Message: "malformed document.xml", Cause: err}
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				sb.WriteByte(' ')
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String(), nil
}

func hasZipEntry(data []byte, name string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return true
		}
	}
	return false
}
