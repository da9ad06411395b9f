package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/ruler/internal/analysis"
)

// Parser turns raw file bytes into a dataset.
type Parser interface {
	Name() string
	Parse(name string, content []byte) (*analysis.Dataset, error)
}

var registry []Parser

// Register adds a parser implementation to the registry. Parsers are tried
// in registration order.
func Register(p Parser) {
	registry = append(registry, p)
}

func init() {
	// Delimited text first, workbook second, regardless of extension.
	Register(csvParser{})
	Register(xlsxParser{})
}

var (
	// ErrEmptyFile indicates there was nothing to parse.
	ErrEmptyFile = errors.New("file is empty")
	// ErrMissingHeader indicates the first row held no column names.
	ErrMissingHeader = errors.New("missing header row")
)

// LoadError indicates a source could not be parsed by any registered parser.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load %s as tabular data: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Parse tries each registered parser in turn and returns the first dataset
// produced. The dataset identity is derived from name and content.
func Parse(name string, content []byte) (*analysis.Dataset, error) {
	if len(content) == 0 {
		return nil, &LoadError{Source: name, Err: ErrEmptyFile}
	}
	var errs []error
	for _, p := range registry {
		ds, err := p.Parse(name, content)
		if err == nil {
			ds.Identity = analysis.IdentityOf([]byte(name), content)
			return ds, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, &LoadError{Source: name, Err: errors.Join(errs...)}
}

// LoadFile reads a file from disk and parses it.
func LoadFile(path string) (*analysis.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: fmt.Errorf("read file: %w", err)}
	}
	return Parse(filepath.Base(path), b)
}

// Loaded is the outcome of LoadOrDefault.
type Loaded struct {
	Dataset *analysis.Dataset
	// FromDefault is true when the bundled dataset was used.
	FromDefault bool
	// Warning carries the upload failure when the default was used instead.
	Warning error
}

// LoadOrDefault parses an upload, falling back to the dataset at defaultPath
// when there is no upload or it cannot be parsed. If the default also fails
// the result is a hard error naming both sources.
func LoadOrDefault(name string, content []byte, defaultPath string) (*Loaded, error) {
	var uploadErr error
	if content != nil {
		ds, err := Parse(name, content)
		if err == nil {
			return &Loaded{Dataset: ds}, nil
		}
		uploadErr = err
	}
	ds, err := LoadFile(defaultPath)
	if err != nil {
		if uploadErr != nil {
			return nil, fmt.Errorf("upload failed (%v) and default dataset failed: %w", uploadErr, err)
		}
		return nil, fmt.Errorf("default dataset: %w", err)
	}
	return &Loaded{Dataset: ds, FromDefault: true, Warning: uploadErr}, nil
}
