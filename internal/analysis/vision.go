package analysis

import (
	"bytes"
	"context"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// secureURLTTL is how long result image URLs stay valid.
const secureURLTTL = 12 * time.Hour

// smallAssetAreaPx: anything below this pixel area is treated as a
// logo regardless of its pixel statistics.
const smallAssetAreaPx = 40000

// ClassifyLogos downloads each stored asset, classifies it as logo or
// plain image, and attaches a pre-signed URL. Per-asset failures are
// logged and the asset kept with its prior type; the call never fails.
func ClassifyLogos(ctx context.Context, store storage.ObjectStore, assets []models.LogoAsset) []models.LogoAsset {
	out := make([]models.LogoAsset, 0, len(assets))
	for _, asset := range assets {
		if asset.StorageKey == "" {
			out = append(out, asset)
			continue
		}

		if asset.AssetType == "" {
			asset.AssetType = "image"
		}

		data, err := storage.ReadAll(ctx, store, asset.StorageKey)
		if err != nil {
			log.Warn().Err(err).Str("asset_id", asset.AssetID).Msg("Failed to download asset for classification")
		} else if isLogo(data) {
			asset.AssetType = "logo"
		}

		url, err := store.PresignedURL(ctx, asset.StorageKey, secureURLTTL)
		if err != nil {
			log.Warn().Err(err).Str("asset_id", asset.AssetID).Msg("Failed to presign asset URL")
		} else {
			asset.SecureURL = url
		}

		out = append(out, asset)
	}
	return out
}

// isLogo applies pixel-statistics heuristics: logos tend to have few
// distinct colors, transparent backgrounds or a dominant border color.
func isLogo(data []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("Asset is not a decodable image")
		return false
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width*height < smallAssetAreaPx {
		return true
	}

	stepX := max(1, width/128)
	stepY := max(1, height/128)

	uniqueColors := make(map[uint32]struct{})
	edgeColors := make(map[uint32]int)
	var sampleCount, transparentCount, edgeTotal int

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, a := img.At(x, y).RGBA()
			packed := (r>>8)<<24 | (g>>8)<<16 | (b>>8)<<8 | a>>8

			sampleCount++
			uniqueColors[packed] = struct{}{}
			if a>>8 < 80 {
				transparentCount++
			}
			onEdge := x < bounds.Min.X+stepX || x >= bounds.Max.X-stepX ||
				y < bounds.Min.Y+stepY || y >= bounds.Max.Y-stepY
			if onEdge {
				edgeColors[packed]++
				edgeTotal++
			}
		}
	}

	if sampleCount == 0 {
		return false
	}

	colorDiversity := float64(len(uniqueColors)) / float64(sampleCount)
	transparencyRatio := float64(transparentCount) / float64(sampleCount)

	var dominantEdgeRatio float64
	if edgeTotal > 0 {
		maxEdge := 0
		for _, n := range edgeColors {
			if n > maxEdge {
				maxEdge = n
			}
		}
		dominantEdgeRatio = float64(maxEdge) / float64(edgeTotal)
	}

	return colorDiversity < 0.18 ||
		(transparencyRatio > 0.25 && colorDiversity < 0.35) ||
		(dominantEdgeRatio > 0.4 && colorDiversity < 0.4)
}
