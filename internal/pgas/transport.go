package pgas

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"
)

// httpClient is the shared HTTP client used for all rank-to-rank RPC
// traffic. Grounded directly on torua's internal/cluster package-level
// httpClient: a package-level client enables connection reuse across
// the many small RPCs the insert batcher issues.
//
// Unlike torua's 5-second fixed client timeout, RPC deadlines here are
// carried by the caller's context (a blocking find can legitimately
// take longer than 5s under load), so the client itself sets no
// timeout and relies entirely on context cancellation.
var httpClient = &http.Client{}

// rpcEnvelope wraps an RPC argument (or reply) for gob transport.
// Gob requires every concrete type ever assigned to the Payload
// interface field to be registered with RegisterGobType before first
// use — callers do this in their own package init(), mirroring
// bigmachine's gob.Register(invocationRef{}) convention.
type rpcEnvelope struct {
	From    int
	Payload any
}

// RegisterGobType registers a concrete type for gob encoding inside an
// rpcEnvelope or handle payload. Call it once per type, from an init()
// in the package that sends the type (internal/table and
// internal/batch both do this).
func RegisterGobType(v any) {
	gob.Register(v)
}

// postGob posts a gob-encoded envelope to url and decodes the
// gob-encoded reply into out.
func postGob(ctx context.Context, url string, env rpcEnvelope, out *rpcEnvelope) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(env); err != nil {
		return fmt.Errorf("pgas: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/gob")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("pgas: http %s: %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return gob.NewDecoder(resp.Body).Decode(out)
}

// getGob performs a GET request and decodes a gob-encoded envelope
// reply.
func getGob(ctx context.Context, url string, out *rpcEnvelope) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("pgas: http %s: %d", url, resp.StatusCode)
	}
	return gob.NewDecoder(resp.Body).Decode(out)
}

// pollHealth retries a GET /health against addr until it succeeds or
// ctx is done, matching torua's node registration retry loop
// (cmd/node/main.go's register()) generalized from "register once" to
// "confirm every peer is reachable before the first barrier."
func pollHealth(ctx context.Context, addr string) error {
	url := addr + "/health"
	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("pgas: waiting for %s: %w (last error: %v)", addr, ctx.Err(), lastErr)
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err == nil {
			resp, doErr := httpClient.Do(req)
			if doErr == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
			} else {
				lastErr = doErr
			}
		} else {
			lastErr = err
		}

		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return fmt.Errorf("pgas: waiting for %s: %w (last error: %v)", addr, ctx.Err(), lastErr)
		}
	}
}
