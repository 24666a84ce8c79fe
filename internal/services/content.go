package services

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/emsdesk/apiserver/internal/storage"
	"github.com/emsdesk/apiserver/types"
)

const (
	assetPrefix  = "content/"
	MaxAssetSize = 10 << 20
)

// ContentRepository defines persistence operations for homepage content.
type ContentRepository interface {
	Get(ctx context.Context) (types.HomepageContent, error)
	Create(ctx context.Context, content types.HomepageContent) error
	Patch(ctx context.Context, updates types.HomepageContent) error
}

// AssetStore stores homepage media.
type AssetStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// ContentService encapsulates homepage content use-cases.
type ContentService struct {
	repo   ContentRepository
	assets AssetStore
}

// NewContentService constructs a ContentService. assets may be nil, in
// which case uploads are unavailable.
func NewContentService(repo ContentRepository, assets AssetStore) *ContentService {
	return &ContentService{repo: repo, assets: assets}
}

func (s *ContentService) Get(ctx context.Context) (types.HomepageContent, error) {
	return s.repo.Get(ctx)
}

func (s *ContentService) Create(ctx context.Context, content types.HomepageContent) error {
	if len(withoutID(content)) == 0 {
		return invalidInput("content is empty")
	}
	return s.repo.Create(ctx, content)
}

func (s *ContentService) Patch(ctx context.Context, updates types.HomepageContent) error {
	if len(withoutID(updates)) == 0 {
		return invalidInput("no fields to update")
	}
	return s.repo.Patch(ctx, updates)
}

// UploadAsset stores an image under a generated key.
func (s *ContentService) UploadAsset(ctx context.Context, filename, contentType string, size int64, r io.Reader) (types.Asset, error) {
	if s.assets == nil {
		return types.Asset{}, unavailable("asset storage is not configured")
	}
	if size <= 0 || size > MaxAssetSize {
		return types.Asset{}, invalidInput("asset must be between 1 byte and %d bytes", MaxAssetSize)
	}

	ext := strings.ToLower(path.Ext(filename))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(ext)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return types.Asset{}, invalidInput("asset must be an image")
	}

	key := assetPrefix + uuid.NewString() + ext
	if err := s.assets.Put(ctx, key, r, size, mediaType); err != nil {
		return types.Asset{}, err
	}
	return types.Asset{
		Key:         key,
		URL:         "/content/assets/" + key,
		ContentType: mediaType,
		Size:        size,
	}, nil
}

// OpenAsset opens a previously uploaded asset.
func (s *ContentService) OpenAsset(ctx context.Context, key string) (*storage.Object, error) {
	if s.assets == nil {
		return nil, unavailable("asset storage is not configured")
	}
	if err := validAssetKey(key); err != nil {
		return nil, err
	}
	return s.assets.Open(ctx, key)
}

// DeleteAsset removes a previously uploaded asset.
func (s *ContentService) DeleteAsset(ctx context.Context, key string) error {
	if s.assets == nil {
		return unavailable("asset storage is not configured")
	}
	if err := validAssetKey(key); err != nil {
		return err
	}
	return s.assets.Delete(ctx, key)
}

func validAssetKey(key string) error {
	if !strings.HasPrefix(key, assetPrefix) || strings.Contains(key, "..") {
		return invalidInput("invalid asset key")
	}
	return nil
}

func withoutID(doc types.HomepageContent) types.HomepageContent {
	out := types.HomepageContent{}
	for key, value := range doc {
		if key != "_id" {
			out[key] = value
		}
	}
	return out
}
