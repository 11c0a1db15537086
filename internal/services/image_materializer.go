package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"time"

	// Card CDNs serve JPEG and PNG, with the odd GIF scan
	_ "image/gif"
	_ "image/png"

	lru "github.com/hashicorp/golang-lru/v2"
	xdraw "golang.org/x/image/draw"

	"github.com/Luigii1506/ohara-backend/internal/metrics"
	"github.com/Luigii1506/ohara-backend/internal/models"
)

const (
	// Card raster canvas. Matches the print proportions of a standard card
	// at 300 DPI so every embedded image shares one size.
	cardCanvasWidth  = 744
	cardCanvasHeight = 1044

	cardJPEGQuality = 85

	// imageLoadTimeout bounds a single image fetch+decode. A slow CDN
	// degrades one card to a placeholder, never the whole report.
	imageLoadTimeout = 15 * time.Second

	imageCacheSize = 256
)

// MaterializedImage is a cache entry for one card image URL: either the
// JPEG-encoded canvas or the reason loading it failed.
type MaterializedImage struct {
	Data []byte
	Err  string
}

// OK reports whether the entry holds a usable encoding
func (m MaterializedImage) OK() bool {
	return m.Err == "" && len(m.Data) > 0
}

// imageFetcher is the outbound fetch dependency (satisfied by ImageProxyService)
type imageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// ImageMaterializer converts card image URLs into fixed-size JPEG encodings
// ready for PDF embedding, de-duplicated by URL across variant card codes.
type ImageMaterializer struct {
	fetcher imageFetcher
	cache   *lru.Cache[string, MaterializedImage]
	timeout time.Duration
}

// NewImageMaterializer creates a new image materializer backed by the given
// fetcher (normally the image proxy service).
func NewImageMaterializer(fetcher imageFetcher) *ImageMaterializer {
	cache, err := lru.New[string, MaterializedImage](imageCacheSize)
	if err != nil {
		log.Printf("Failed to create materialized image cache: %v", err)
	}

	return &ImageMaterializer{
		fetcher: fetcher,
		cache:   cache,
		timeout: imageLoadTimeout,
	}
}

// MaterializeAll loads every unique card image, sequentially, reporting
// progress per unique URL. The returned map is keyed by source URL; failed
// loads are present as error entries so layout code renders a placeholder.
// Duplicate CardSrc values (variant codes sharing one image) are fetched
// exactly once.
func (m *ImageMaterializer) MaterializeAll(ctx context.Context, cards []models.CardValuation, progress func(current, total int)) map[string]MaterializedImage {
	// Unique URLs in first-seen order
	var urls []string
	seen := make(map[string]bool)
	for _, card := range cards {
		if card.CardSrc == "" || seen[card.CardSrc] {
			continue
		}
		seen[card.CardSrc] = true
		urls = append(urls, card.CardSrc)
	}

	results := make(map[string]MaterializedImage, len(urls))
	for i, u := range urls {
		results[u] = m.Materialize(ctx, u)
		if progress != nil {
			progress(i+1, len(urls))
		}
	}

	return results
}

// Materialize returns the encoded canvas for one URL, from cache when
// available. Failures are cached too: a broken host is not retried within
// the cache's lifetime.
func (m *ImageMaterializer) Materialize(ctx context.Context, rawURL string) MaterializedImage {
	if m.cache != nil {
		if cached, ok := m.cache.Get(rawURL); ok {
			return cached
		}
	}

	result := m.materialize(ctx, rawURL)
	if result.OK() {
		metrics.ReportImagesLoaded.Inc()
	} else {
		metrics.ReportImagesFailed.Inc()
		log.Printf("Image materializer: %s: %s", rawURL, result.Err)
	}

	if m.cache != nil {
		m.cache.Add(rawURL, result)
	}
	return result
}

func (m *ImageMaterializer) materialize(ctx context.Context, rawURL string) MaterializedImage {
	loadCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, _, err := m.fetcher.Fetch(loadCtx, rawURL)
	if err != nil {
		return MaterializedImage{Err: err.Error()}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return MaterializedImage{Err: "decode failed: " + err.Error()}
	}

	encoded, err := rasterizeCard(src)
	if err != nil {
		return MaterializedImage{Err: "encode failed: " + err.Error()}
	}

	return MaterializedImage{Data: encoded}
}

// rasterizeCard draws a source image onto the fixed card canvas. White fill
// first so transparent PNGs normalize, then a full-canvas scale (card scans
// already carry the right aspect ratio).
func rasterizeCard(src image.Image) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, cardCanvasWidth, cardCanvasHeight))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: cardJPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
