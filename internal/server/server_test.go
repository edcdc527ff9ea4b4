package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/circlepack/pkg/cache"
	"github.com/matzehuels/circlepack/pkg/observability"
	"github.com/matzehuels/circlepack/pkg/pipeline"
	"github.com/matzehuels/circlepack/pkg/render"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	runner := pipeline.NewRunner(fc, nil, logger)
	srv := httptest.NewServer(New(runner, logger, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

const smallBody = `{"width":100,"passes":[{"radius":10,"attempts":50},{"radius":4,"attempts":200}],"spacing":0,"seed":7}`

func post(t *testing.T, srv *httptest.Server, path, body string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestPackSVG(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/v1/pack", smallBody, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, "7", resp.Header.Get("X-Circlepack-Seed"))
	assert.NotEmpty(t, resp.Header.Get("X-Run-ID"))
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">`)))

	again := post(t, srv, "/v1/pack", smallBody, nil)
	assert.Equal(t, "HIT", again.Header.Get("X-Cache"))
}

func TestPackJSONByAccept(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/v1/pack", smallBody, map[string]string{"Accept": "application/json"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	doc, err := render.ReadJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 100.0, doc.Width)
	assert.NotEmpty(t, doc.Circles)
}

func TestPackImageData(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	body := strings.TrimSuffix(smallBody, "}") +
		`,"format":"json","image_data":"` + base64.StdEncoding.EncodeToString(buf.Bytes()) + `"}`

	srv := newTestServer(t)
	resp := post(t, srv, "/v1/pack", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	doc, err := render.ReadJSON(data)
	require.NoError(t, err)
	for _, c := range doc.Circles {
		assert.Equal(t, "rgba(200,100,50,255)", c.Fill)
	}
}

func TestPackErrors(t *testing.T) {
	srv := newTestServer(t, WithMaxAttempts(1000))

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"width":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", `{"colour":"red"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad sampler", `{"width":100,"passes":[{"radius":5,"attempts":5}],"sampler":"hex"}`, http.StatusBadRequest, "INVALID_SAMPLER"},
		{"bad format", `{"width":100,"passes":[{"radius":5,"attempts":5}],"format":"gif"}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"radius too large", `{"width":100,"passes":[{"radius":60,"attempts":5}]}`, http.StatusBadRequest, "INVALID_GEOMETRY"},
		{"too many attempts", `{"width":100,"passes":[{"radius":5,"attempts":5000}]}`, http.StatusBadRequest, "INVALID_PASSES"},
		{"overflowing attempts", `{"width":100,"passes":[{"radius":5,"attempts":9223372036854775000},{"radius":4,"attempts":9223372036854775000}]}`, http.StatusBadRequest, "INVALID_PASSES"},
		{"zero width", `{"width":0,"passes":[{"radius":5,"attempts":5}]}`, http.StatusBadRequest, "INVALID_GEOMETRY"},
		{"bad image", `{"width":100,"passes":[{"radius":5,"attempts":5}],"image_data":"aGVsbG8="}`, http.StatusBadRequest, "IMAGE_DECODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, "/v1/pack", tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestPackTinyRadius(t *testing.T) {
	srv := newTestServer(t)
	body := `{"width":1000,"passes":[{"radius":0.001,"attempts":3}],"seed":1,"format":"json"}`
	resp := post(t, srv, "/v1/pack", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc render.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.LessOrEqual(t, len(doc.Circles), 3)
}

func TestPackPNGWithoutConverter(t *testing.T) {
	srv := newTestServer(t)
	t.Setenv("PATH", "")

	resp := post(t, srv, "/v1/pack?format=png", smallBody, nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "UNSUPPORTED", body.Error.Code)
}

func TestPackIgnoresImagePath(t *testing.T) {
	srv := newTestServer(t)
	body := strings.TrimSuffix(smallBody, "}") + `,"image":"/etc/passwd"}`
	resp := post(t, srv, "/v1/pack", body, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fill="black"`)
}

func TestMetricsRoute(t *testing.T) {
	defer observability.Reset()
	m := observability.NewMetrics()
	m.Register()

	srv := newTestServer(t, WithMetrics(m.Handler()))
	post(t, srv, "/v1/pack", smallBody, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(data), `circlepack_http_requests_total{code="200",method="POST",route="/v1/pack"} 1`)
	assert.Contains(t, string(data), "circlepack_pack_runs_total")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(pipeline.NewRunner(nil, nil, log.New(io.Discard)), log.New(io.Discard))

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-errCh)
}
