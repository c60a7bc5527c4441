package upload

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/example/wordbot/internal/excel"
	"github.com/example/wordbot/pkg/models"
)

var (
	// ErrUnsupportedFormat is returned for file types other than .txt and .xlsx
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrTooLarge is returned when the upload exceeds the size limit
	ErrTooLarge = errors.New("file too large")
)

// DefaultMaxBytes is the upload size limit used when none is configured
const DefaultMaxBytes = 10 << 20

// Saver stores decoded wordlist text for an owner
type Saver interface {
	Save(ownerID int64, filename, content string) (*models.Wordlist, error)
}

// Importer turns uploaded files into user wordlists
type Importer struct {
	store    Saver
	maxBytes int64
	logger   *zap.Logger
}

// NewImporter creates an importer; maxBytes <= 0 selects DefaultMaxBytes
func NewImporter(store Saver, maxBytes int64, logger *zap.Logger) *Importer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, maxBytes: maxBytes, logger: logger}
}

// MaxBytes returns the upload size limit
func (i *Importer) MaxBytes() int64 {
	return i.maxBytes
}

// Import decodes an uploaded file and saves it as a wordlist owned by ownerID
func (i *Importer) Import(ownerID int64, filename string, raw []byte) (*models.Wordlist, error) {
	if int64(len(raw)) > i.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw))
	}

	var content string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		text, enc, err := Decode(raw)
		if err != nil {
			i.logger.Warn("failed to decode upload", zap.Int64("owner", ownerID), zap.String("file", filename))
			return nil, err
		}
		i.logger.Debug("upload decoded", zap.String("file", filename), zap.String("encoding", enc))
		content = text
	case ".xlsx":
		text, err := excel.ReadText(bytes.NewReader(raw), excel.DefaultReadConfig())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		content = text
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".txt"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	return i.store.Save(ownerID, filename, content)
}
