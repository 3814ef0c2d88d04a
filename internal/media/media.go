// Package media resolves inbound media references to analyzable content
// (§4.D media analysis tools, §6 "tries base64-payload-fetch, then direct
// URL, then alternative id-based endpoint, in order") and exposes an
// opaque analysis surface to the orchestrator — analyze_image,
// transcribe_audio, extract_document_text are implemented elsewhere
// (vision/ASR providers); this package only owns fetching bytes.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Resolver fetches media bytes given a vendor reference, trying fallbacks
// in §6's declared order.
type Resolver struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

func New(baseURL, apiKey string) *Resolver {
	return &Resolver{baseURL: baseURL, apiKey: apiKey, httpClient: &http.Client{Timeout: 30 * time.Second}, timeout: 30 * time.Second}
}

// Fetch resolves mediaRef to bytes via base64-payload-fetch, then direct
// URL, then alternative id-based endpoint (§6). If every fallback is
// exhausted, returns ErrMediaUnavailable so the caller proceeds without
// media content (§7).
func (r *Resolver) Fetch(ctx context.Context, mediaRef string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fetchers := []func(context.Context, string) ([]byte, error){
		r.fetchBase64Payload,
		r.fetchDirectURL,
		r.fetchByID,
	}

	var lastErr error
	for _, fetch := range fetchers {
		data, err := fetch(ctx, mediaRef)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, domain.NewError(domain.ErrMediaUnavailable, fmt.Errorf("media: all fallbacks exhausted for %q: %w", mediaRef, lastErr))
}

func (r *Resolver) fetchBase64Payload(ctx context.Context, mediaRef string) ([]byte, error) {
	return r.get(ctx, "/chat/getBase64/"+mediaRef)
}

func (r *Resolver) fetchDirectURL(ctx context.Context, mediaRef string) ([]byte, error) {
	return r.get(ctx, mediaRef)
}

func (r *Resolver) fetchByID(ctx context.Context, mediaRef string) ([]byte, error) {
	return r.get(ctx, "/media/id/"+mediaRef)
}

func (r *Resolver) get(ctx context.Context, url string) ([]byte, error) {
	if len(url) == 0 {
		return nil, fmt.Errorf("media: empty reference")
	}
	target := url
	if url[0] == '/' {
		target = r.baseURL + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("media: %s: status %d", target, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Analyzer is the opaque media-analysis surface the orchestrator's tools
// delegate to (§4.D: "Media analysis" category). Implementations wrap a
// vision/ASR/document-extraction provider; the orchestrator never knows
// which.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, data []byte) (string, error)
	TranscribeAudio(ctx context.Context, data []byte) (string, error)
	ExtractDocumentText(ctx context.Context, data []byte) (string, error)
}
