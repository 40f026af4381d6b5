package analysis

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// memStore is an in-memory ObjectStore for tests.
type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Upload(_ context.Context, key string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = b
	return nil
}

func (s *memStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := s.objects[key]; !ok {
		return "", storage.ErrNotFound
	}
	return "https://store.test/" + key, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// transparentWithCenter is a 64x64 fully transparent image with a
// 32x32 dark-grey center block.
func transparentWithCenter(t *testing.T) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 16; y < 48; y++ {
		for x := 16; x < 48; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 60, G: 60, B: 60, A: 255})
		}
	}
	return encodePNG(t, img)
}

func noisyPhoto(t *testing.T) []byte {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return encodePNG(t, img)
}

func TestSmallTransparentImageIsLogo(t *testing.T) {
	assert.True(t, isLogo(transparentWithCenter(t)))
}

func TestUniformLargeImageIsLogo(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 40, B: 120, A: 255})
		}
	}
	assert.True(t, isLogo(encodePNG(t, img)))
}

func TestNoisyPhotoIsNotLogo(t *testing.T) {
	assert.False(t, isLogo(noisyPhoto(t)))
}

func TestClassifyLogosAttachesURLAndType(t *testing.T) {
	store := newMemStore()
	key := "images/job-1/asset_job-1_0.png"
	store.objects[key] = transparentWithCenter(t)

	assets := ClassifyLogos(context.Background(), store, []models.LogoAsset{
		{AssetID: "asset_job-1_0", AssetType: "image", StorageKey: key},
		{AssetID: "asset_job-1_1", AssetType: "image"}, // no storage key
	})

	require.Len(t, assets, 2)
	assert.Equal(t, "logo", assets[0].AssetType)
	assert.Equal(t, "https://store.test/"+key, assets[0].SecureURL)
	assert.Equal(t, "image", assets[1].AssetType)
	assert.Empty(t, assets[1].SecureURL)
}

func TestClassifyLogosSurvivesMissingObject(t *testing.T) {
	store := newMemStore()
	assets := ClassifyLogos(context.Background(), store, []models.LogoAsset{
		{AssetID: fmt.Sprintf("asset_%s_0", "gone"), AssetType: "image", StorageKey: "images/gone/missing.png"},
	})

	require.Len(t, assets, 1)
	assert.Equal(t, "image", assets[0].AssetType)
}
