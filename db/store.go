package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bytedance/sonic"

	"tuition-server-go/models"
)

// DataStore is the local persistence of the document.
type DataStore struct {
	blobs           BlobStore
	defaultEndpoint string
}

// NewDataStore wraps a BlobStore. defaultEndpoint replaces an empty sheetLink on load;
// when empty the baked-in models.DefaultSheetLink is used.
func NewDataStore(blobs BlobStore, defaultEndpoint string) *DataStore {
	if defaultEndpoint == "" {
		defaultEndpoint = models.DefaultSheetLink
	}
	return &DataStore{blobs: blobs, defaultEndpoint: defaultEndpoint}
}

// DefaultEndpoint returns the fallback remote endpoint.
func (s *DataStore) DefaultEndpoint() string {
	return s.defaultEndpoint
}

// Initialize loads the persisted document, or the default one when nothing usable is
// stored. It never fails: read and parse errors are logged and treated as no state.
func (s *DataStore) Initialize(ctx context.Context) *models.AppData {
	data, err := s.load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoBlob) {
			log.Printf("Warning: persisted document unusable, starting from defaults: %v", err)
		}
		data = models.NewAppData()
		data.SheetLink = s.defaultEndpoint
	}

	if strings.TrimSpace(data.SheetLink) == "" {
		data.SheetLink = s.defaultEndpoint
	}
	data.EnsureFees()
	Sanitize(data)
	return data
}

func (s *DataStore) load(ctx context.Context) (*models.AppData, error) {
	blob, err := s.blobs.Load(ctx)
	if err != nil {
		return nil, err
	}
	var data models.AppData
	if err := sonic.ConfigStd.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &data, nil
}

// Sanitize forces exactly the four grade buckets and drops empty or garbage rows.
func Sanitize(data *models.AppData) {
	data.Sheets = models.SanitizeSheets(data.Sheets)
}

// Persist writes the whole document verbatim.
func (s *DataStore) Persist(ctx context.Context, data *models.AppData) error {
	blob, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return s.blobs.Save(ctx, blob)
}
