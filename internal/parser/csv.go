package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/ruler/internal/analysis"
)

// ErrNotText indicates content that is not UTF-8 text.
var ErrNotText = errors.New("content is not UTF-8 text")

type csvParser struct{}

func (csvParser) Name() string { return "csv" }

func (csvParser) Parse(name string, content []byte) (*analysis.Dataset, error) {
	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(content) || bytes.IndexByte(content, 0) >= 0 {
		return nil, ErrNotText
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.Comma = sniffDelimiter(content)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !hasName(header) {
		return nil, ErrMissingHeader
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return analysis.NewDataset(name, header, rows), nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the header
// line, ignoring quoted text. Comma wins ties.
func sniffDelimiter(content []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(content)).ReadString('\n')
	counts := map[rune]int{}
	inQuote := false
	for _, c := range line {
		switch c {
		case '"':
			inQuote = !inQuote
		case ',', ';', '\t':
			if !inQuote {
				counts[c]++
			}
		}
	}
	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func hasName(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return true
		}
	}
	return false
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
