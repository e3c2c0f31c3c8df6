package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"

	"github.com/maxkimambo/sitepipe/internal/cache"
	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/metrics"
)

// ImageStats reports what an Optimize run did.
type ImageStats struct {
	// Processed counts images that were compressed on this run.
	Processed int
	// Cached counts images served from the cache.
	Cached int
	// Copied counts files in formats that are not compressed.
	Copied int
}

// ImageOptimizer compresses images, consulting a content-keyed cache so
// unchanged sources are not reprocessed.
type ImageOptimizer struct {
	Cache       cache.Cache
	JPEGQuality int
	Recorder    metrics.Recorder

	once sync.Once
	min  *minify.M
}

// NewImageOptimizer returns an optimizer backed by c.
func NewImageOptimizer(c cache.Cache, jpegQuality int, rec metrics.Recorder) *ImageOptimizer {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &ImageOptimizer{Cache: c, JPEGQuality: jpegQuality, Recorder: rec}
}

// Optimize writes an optimized copy of every file under srcDir (minus
// exclude patterns) to the same relative path under dstDir.
func (o *ImageOptimizer) Optimize(ctx context.Context, srcDir, dstDir string, exclude ...string) (ImageStats, error) {
	var stats ImageStats

	files, err := Glob(srcDir, "**/*", exclude...)
	if err != nil {
		return stats, buildErrors.NewSourceReadError(srcDir, "image", err)
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		src := filepath.Join(srcDir, filepath.FromSlash(rel))
		dst := filepath.Join(dstDir, filepath.FromSlash(rel))

		data, err := readSource(src, "image")
		if err != nil {
			return stats, err
		}

		variant := o.variant(rel)
		if variant == "" {
			if err := writeOutput(dst, data, "image"); err != nil {
				return stats, err
			}
			stats.Copied++
			continue
		}

		key := cache.Key(data, variant)
		out, hit, err := o.Cache.Get(ctx, key)
		if err != nil {
			logger.Op.WithFields(map[string]interface{}{
				"file":  rel,
				"error": err.Error(),
			}).Warn("Image cache lookup failed")
			hit = false
		}
		o.Recorder.IncCacheLookup(hit)

		if hit {
			stats.Cached++
		} else {
			out, err = o.compress(rel, data)
			if err != nil {
				return stats, buildErrors.NewTransformFailedError("image compressor", src, err)
			}
			if err := o.Cache.Put(ctx, key, out); err != nil {
				logger.Op.WithFields(map[string]interface{}{
					"file":  rel,
					"error": err.Error(),
				}).Warn("Image cache store failed")
			}
			stats.Processed++
		}

		if err := writeOutput(dst, out, "image"); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// variant names the compression applied to a file, or "" when the file
// is copied as is. It is folded into the cache key.
func (o *ImageOptimizer) variant(rel string) string {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".png":
		return "png:best"
	case ".jpg", ".jpeg":
		return fmt.Sprintf("jpeg:q=%d", o.JPEGQuality)
	case ".gif":
		return "gif"
	case ".svg":
		return "svg:min"
	default:
		return ""
	}
}

// compress returns the smaller of the compressed output and the input.
func (o *ImageOptimizer) compress(rel string, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	switch strings.ToLower(filepath.Ext(rel)) {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case ".jpg", ".jpeg":
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.JPEGQuality}); err != nil {
			return nil, err
		}
	case ".gif":
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if err := gif.EncodeAll(&buf, g); err != nil {
			return nil, err
		}
	case ".svg":
		o.once.Do(func() { o.min = newMinifier() })
		if err := o.min.Minify(mediaSVG, &buf, bytes.NewReader(data)); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}

	if buf.Len() >= len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}
