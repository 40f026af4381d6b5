package docx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/ooxml"
	"github.com/dtce-ai/docpipe/internal/storage"
)

const defaultImageDimensionPx = 100

// extractImages uploads every image part to the object store under
// images/{jobId}/ and emits one LogoAsset per part. AssetType starts
// as "image"; the analyzer reclassifies logos later.
func extractImages(ctx context.Context, pkg *ooxml.Package, doc *ooxml.Document, jobID string, store storage.ObjectStore) ([]models.LogoAsset, error) {
	parts, err := pkg.ImageParts()
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}

	extents := extentsByPart(pkg, doc)

	var assets []models.LogoAsset
	for i, part := range parts {
		assetID := fmt.Sprintf("asset_%s_%d", jobID, i)
		ext := ooxml.ExtensionForContentType(part.ContentType)
		key := models.ImageKey(jobID, assetID, ext)

		if err := store.Upload(ctx, key, bytes.NewReader(part.Data), part.ContentType); err != nil {
			return nil, fmt.Errorf("failed to store image %s: %w", part.Name, err)
		}

		box := models.BoundingBox{
			Width:      defaultImageDimensionPx,
			Height:     defaultImageDimensionPx,
			PageNumber: 1,
		}
		if e, ok := extents[part.Name]; ok {
			if w, h := e.Pixels(); w > 0 && h > 0 {
				box.Width, box.Height = w, h
			}
		}

		assets = append(assets, models.LogoAsset{
			AssetID:     assetID,
			AssetType:   "image",
			BoundingBox: box,
			StorageKey:  key,
		})

		log.Debug().Str("asset_id", assetID).Str("key", key).Msg("Image extracted")
	}

	return assets, nil
}

// extentsByPart maps each media part to the first inline extent whose
// relationship points at it.
func extentsByPart(pkg *ooxml.Package, doc *ooxml.Document) map[string]*ooxml.Extent {
	rels, err := pkg.DocumentRels()
	if err != nil {
		return nil
	}

	out := make(map[string]*ooxml.Extent)
	for _, p := range doc.Body.Paragraphs {
		for _, r := range p.Runs {
			for _, d := range r.Drawings {
				content := d.Content()
				if content == nil || content.Extent == nil {
					continue
				}
				rel, ok := rels[content.BlipEmbed()]
				if !ok {
					continue
				}
				partName := ooxml.ResolveRelTarget(rel.Target)
				if _, exists := out[partName]; !exists {
					out[partName] = content.Extent
				}
			}
		}
	}
	return out
}
