package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Luigii1506/ohara-backend/internal/models"
)

// fakeFetcher stands in for the image proxy and counts fetches per URL
type fakeFetcher struct {
	mu      sync.Mutex
	hits    map[string]int
	fail    map[string]bool
	blockOn map[string]bool
	payload []byte
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	t.Helper()

	var buf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 74, 104))
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}

	return &fakeFetcher{
		hits:    make(map[string]int),
		fail:    make(map[string]bool),
		blockOn: make(map[string]bool),
		payload: buf.Bytes(),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	f.mu.Lock()
	f.hits[rawURL]++
	fail := f.fail[rawURL]
	block := f.blockOn[rawURL]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, "", ctx.Err()
	}
	if fail {
		return nil, "", errors.New("image host returned status 404")
	}
	return f.payload, "image/jpeg", nil
}

func (f *fakeFetcher) hitCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[rawURL]
}

func TestMaterializeAllDeduplicatesByURL(t *testing.T) {
	fetcher := newFakeFetcher(t)
	materializer := NewImageMaterializer(fetcher)

	sharedURL := "https://example.dotgg.gg/images/OP01-001.png"
	cards := []models.CardValuation{
		{CardCode: "OP01-001", CardSrc: sharedURL},
		{CardCode: "OP01-001_p1", CardSrc: sharedURL},
		{CardCode: "OP01-001_p2", CardSrc: sharedURL},
		{CardCode: "ST01-001", CardSrc: "https://example.dotgg.gg/images/ST01-001.png"},
		{CardCode: "OP01-121"}, // no image URL
	}

	var progressCalls []int
	results := materializer.MaterializeAll(context.Background(), cards, func(current, total int) {
		progressCalls = append(progressCalls, total)
	})

	if got := fetcher.hitCount(sharedURL); got != 1 {
		t.Errorf("Shared URL fetched %d times, expected exactly 1", got)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 materialized entries, got %d", len(results))
	}
	if !results[sharedURL].OK() {
		t.Errorf("Shared URL entry not OK: %q", results[sharedURL].Err)
	}

	// Progress runs per unique URL, not per card
	if len(progressCalls) != 2 {
		t.Errorf("Expected 2 progress callbacks, got %d", len(progressCalls))
	}
	for _, total := range progressCalls {
		if total != 2 {
			t.Errorf("Progress total = %d, expected 2", total)
		}
	}
}

func TestMaterializeFailureCached(t *testing.T) {
	fetcher := newFakeFetcher(t)
	badURL := "https://example.dotgg.gg/images/missing.png"
	fetcher.fail[badURL] = true

	materializer := NewImageMaterializer(fetcher)

	result := materializer.Materialize(context.Background(), badURL)
	if result.OK() {
		t.Fatal("Expected a failed entry for a 404 image")
	}
	if !strings.Contains(result.Err, "404") {
		t.Errorf("Error %q should carry the upstream failure", result.Err)
	}

	// Second call must come from cache, not retry the broken host
	materializer.Materialize(context.Background(), badURL)
	if got := fetcher.hitCount(badURL); got != 1 {
		t.Errorf("Failed URL fetched %d times, expected 1 (failure cached)", got)
	}
}

func TestMaterializeTimeout(t *testing.T) {
	fetcher := newFakeFetcher(t)
	slowURL := "https://example.dotgg.gg/images/slow.png"
	fetcher.blockOn[slowURL] = true

	materializer := NewImageMaterializer(fetcher)
	materializer.timeout = 50 * time.Millisecond

	start := time.Now()
	result := materializer.Materialize(context.Background(), slowURL)
	elapsed := time.Since(start)

	if result.OK() {
		t.Fatal("Expected a timed-out load to produce an error entry")
	}
	if elapsed > 2*time.Second {
		t.Errorf("Timeout took %v, expected around 50ms", elapsed)
	}
}

func TestRasterizeCardCanvasSize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 420))
	encoded, err := rasterizeCard(src)
	if err != nil {
		t.Fatalf("rasterizeCard failed: %v", err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Failed to decode rasterized card: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("Encoded format = %q, expected jpeg", format)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != cardCanvasWidth || bounds.Dy() != cardCanvasHeight {
		t.Errorf("Canvas size = %dx%d, expected %dx%d", bounds.Dx(), bounds.Dy(), cardCanvasWidth, cardCanvasHeight)
	}
}
