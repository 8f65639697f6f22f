package storage

import (
	"io"

	"github.com/phambaophuc/resizo/internal/config"
	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

// ObjectStore is the part of the Supabase storage client the service uses.
type ObjectStore interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	ListFiles(bucketId string, queryPath string, options storage_go.FileSearchOptions) ([]storage_go.FileObject, error)
}

// Object is one processed output waiting to be kept.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

type StorageService struct {
	client  ObjectStore
	bucket  string
	workers int
	logger  *zap.Logger
}

func NewStorageService(cfg config.SupabaseConfig, logger *zap.Logger) *StorageService {
	client := storage_go.NewClient(cfg.URL+"/storage/v1", cfg.KEY, nil)
	return newStorageService(client, cfg.BUCKET, logger)
}

func newStorageService(client ObjectStore, bucket string, logger *zap.Logger) *StorageService {
	return &StorageService{
		client:  client,
		bucket:  bucket,
		workers: 5,
		logger:  logger,
	}
}
