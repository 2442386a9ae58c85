package devbackend

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var errNotIndexable = errors.New("devbackend: format is stored but not indexed")

// extractText returns the searchable text blocks of a document, chosen by
// extension. Legacy .doc files are accepted but not indexed.
func extractText(name string, data []byte) ([]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".txt":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("devbackend: %s is not valid UTF-8", name)
		}
		return []string{string(data)}, nil
	default:
		return nil, errNotIndexable
	}
}

func extractPDF(data []byte) (blocks []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("devbackend: malformed pdf: %v", r)
		}
	}()
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := rdr.NumPage()
	blocks = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pg := rdr.Page(i)
		if pg.V.IsNull() {
			continue
		}
		txt, err := pg.GetPlainText(nil)
		if err != nil {
			continue
		}
		s := strings.TrimSpace(txt)
		if s == "" {
			continue
		}
		blocks = append(blocks, "Page "+strconv.Itoa(i)+"\n"+s)
	}
	return blocks, nil
}

// extractDOCX reads the paragraph text out of word/document.xml.
func extractDOCX(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("devbackend: open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("devbackend: open document.xml: %w", err)
		}
		defer rc.Close()
		return docxParagraphs(rc)
	}
	return nil, fmt.Errorf("devbackend: docx has no word/document.xml")
}

func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("devbackend: parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(current.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		paragraphs = append(paragraphs, s)
	}
	if len(paragraphs) == 0 {
		return nil, nil
	}
	return []string{strings.Join(paragraphs, "\n")}, nil
}
