package httpapi

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"makermate/internal/utils"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	m365UserAgent    = "MakerMate/1.0 (+https://github.com/)"

	maxDocumentBody = 32 << 20
	maxM365Body     = 16 << 20
)

var (
	httpScheme    = regexp.MustCompile(`(?i)^https?://`)
	repeatedSlash = regexp.MustCompile(`/{2,}`)
)

// LicensingFetchRequest is the body of POST /api/licensing/fetch
type LicensingFetchRequest struct {
	URL string `json:"url"`
}

// LicensingFetchResponse carries the fetched document inline
type LicensingFetchResponse struct {
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Base64      string `json:"base64"`
}

// UpstreamFailure is returned with the upstream status when a fetch is rejected
type UpstreamFailure struct {
	Error      string `json:"error"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	URL        string `json:"url"`
}

type upstreamBody struct {
	status int
	body   []byte
}

// normalizeDocumentURL collapses repeated slashes in the path only
func normalizeDocumentURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Path = repeatedSlash.ReplaceAllString(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// statusText is the reason phrase the upstream sent, e.g. "Not Found"
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// handleLicensingFetch handles POST /api/licensing/fetch. It downloads a
// document server-side and returns it base64 encoded.
func (d *Dependencies) handleLicensingFetch(w http.ResponseWriter, r *http.Request) {
	var req LicensingFetchRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	target := strings.TrimSpace(req.URL)
	if target == "" || !httpScheme.MatchString(target) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid or missing url")
		return
	}
	target = normalizeDocumentURL(target)

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}
	upstream.Header.Set("User-Agent", browserUserAgent)
	upstream.Header.Set("Accept", "application/pdf,application/octet-stream;q=0.9,*/*;q=0.8")
	upstream.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	upstream.Header.Set("Cache-Control", "no-cache")

	resp, err := d.Client.Do(upstream)
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.RespondWithJSON(w, resp.StatusCode, UpstreamFailure{
			Error:      "Upstream fetch failed",
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			URL:        target,
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBody+1))
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}
	if len(body) > maxDocumentBody {
		utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error",
			fmt.Sprintf("document exceeds %d bytes", maxDocumentBody))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Cache-Control", "no-store")
	utils.RespondWithJSON(w, http.StatusOK, LicensingFetchResponse{
		ContentType: contentType,
		Size:        len(body),
		Base64:      base64.StdEncoding.EncodeToString(body),
	})
}

// handleM365 handles GET /api/m365, relaying the release communications
// API verbatim with the caller's query string. Successful bodies are cached.
func (d *Dependencies) handleM365(w http.ResponseWriter, r *http.Request) {
	target := d.M365URL
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	if cached, ok := d.m365.Get(target); ok {
		writeM365(w, cached)
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadGateway, "Bad gateway", err.Error())
		return
	}
	upstream.Header.Set("Accept", "application/json")
	upstream.Header.Set("User-Agent", m365UserAgent)

	resp, err := d.Client.Do(upstream)
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadGateway, "Bad gateway", err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxM365Body))
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadGateway, "Bad gateway", err.Error())
		return
	}

	out := upstreamBody{status: resp.StatusCode, body: body}
	if resp.StatusCode == http.StatusOK {
		d.m365.Set(target, out)
	}
	writeM365(w, out)
}

func writeM365(w http.ResponseWriter, out upstreamBody) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "public, max-age=900")
	w.WriteHeader(out.status)
	w.Write(out.body)
}
