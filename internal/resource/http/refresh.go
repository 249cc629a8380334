package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/carbonatlas/geoauth/pkg/httpx"
	"github.com/carbonatlas/geoauth/pkg/slogx"
)

// RefreshProxyHandler forwards refresh requests to the issuer so map
// clients talk to a single origin. A timed-out call is retried once;
// any other failure is passed through as-is.
type RefreshProxyHandler struct {
	Upstream string
	Client   *http.Client
}

const retryBackoff = 200 * time.Millisecond

func (h *RefreshProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.forward(r, body)
	if err != nil && isTimeout(err) {
		log.Warn("refresh upstream timed out, retrying", "error", err)
		time.Sleep(retryBackoff)
		resp, err = h.forward(r, body)
	}
	if err != nil {
		log.Error("refresh upstream unreachable", "error", err)
		httpx.WriteError(w, http.StatusBadGateway, "authentication service unavailable")
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	httpx.NoCache(w)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, io.LimitReader(resp.Body, 1<<20))
}

func (h *RefreshProxyHandler) forward(r *http.Request, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.Upstream, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.Client.Do(req)
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
