package imagecheck

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func imageServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	return httptest.NewServer(mux)
}

func serveImage(t *testing.T, w, h int) http.HandlerFunc {
	body := pngBytes(t, w, h)
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "image/png")
		rw.Write(body)
	}
}

func TestResolveCoverFirstReachableWins(t *testing.T) {
	srv := imageServer(t, map[string]http.HandlerFunc{
		"/broken.png": func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusNotFound)
		},
		"/ok.png": serveImage(t, 400, 300),
	})
	defer srv.Close()

	checker := NewWithClient(srv.Client(), 200, 200)
	url, ok := checker.ResolveCover(context.Background(), []string{
		"", srv.URL + "/broken.png", srv.URL + "/ok.png",
	})
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/ok.png", url)
}

func TestResolveCoverRejectsUndersizedImages(t *testing.T) {
	srv := imageServer(t, map[string]http.HandlerFunc{
		"/tiny.png": serveImage(t, 50, 50),
	})
	defer srv.Close()

	checker := NewWithClient(srv.Client(), 200, 200)
	_, ok := checker.ResolveCover(context.Background(), []string{srv.URL + "/tiny.png"})
	assert.False(t, ok)
}

func TestResolveCoverFollowsOGImageOnce(t *testing.T) {
	var srv *httptest.Server
	srv = imageServer(t, map[string]http.HandlerFunc{
		"/photo.png": serveImage(t, 400, 300),
		"/page": func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Content-Type", "text/html")
			rw.Write([]byte(`<html><head><meta property="og:image" content="` + srv.URL + `/photo.png"></head></html>`))
		},
	})
	defer srv.Close()

	checker := NewWithClient(srv.Client(), 200, 200)
	url, ok := checker.ResolveCover(context.Background(), []string{srv.URL + "/page"})
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/photo.png", url)
}

func TestResolveCoverDoesNotFollowHTMLTwice(t *testing.T) {
	var srv *httptest.Server
	srv = imageServer(t, map[string]http.HandlerFunc{
		"/page2": func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Content-Type", "text/html")
			rw.Write([]byte(`<html><head><meta property="og:image" content="` + srv.URL + `/photo.png"></head></html>`))
		},
		"/page": func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Content-Type", "text/html")
			rw.Write([]byte(`<html><head><meta property="og:image" content="` + srv.URL + `/page2"></head></html>`))
		},
	})
	defer srv.Close()

	checker := NewWithClient(srv.Client(), 0, 0)
	_, ok := checker.ResolveCover(context.Background(), []string{srv.URL + "/page"})
	assert.False(t, ok)
}

func TestResolveCoverUnparsableDimensionsPass(t *testing.T) {
	srv := imageServer(t, map[string]http.HandlerFunc{
		"/opaque.webp": func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Content-Type", "image/webp")
			rw.Write([]byte("not actually decodable"))
		},
	})
	defer srv.Close()

	// 헤더를 해석할 수 없는 포맷은 크기 검증을 통과시킨다.
	checker := NewWithClient(srv.Client(), 200, 200)
	_, ok := checker.ResolveCover(context.Background(), []string{srv.URL + "/opaque.webp"})
	assert.True(t, ok)
}

func TestResolveCoversIndependentResults(t *testing.T) {
	srv := imageServer(t, map[string]http.HandlerFunc{
		"/a.png": serveImage(t, 400, 300),
		"/missing.png": func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusNotFound)
		},
		"/c.png": serveImage(t, 640, 480),
	})
	defer srv.Close()

	checker := NewWithClient(srv.Client(), 200, 200)
	resolved := checker.ResolveCovers(context.Background(), [][]string{
		{srv.URL + "/a.png"},
		{srv.URL + "/missing.png"},
		{srv.URL + "/c.png"},
		{},
	})

	assert.Equal(t, srv.URL+"/a.png", resolved[0])
	assert.Equal(t, srv.URL+"/c.png", resolved[2])
	_, hasBroken := resolved[1]
	assert.False(t, hasBroken)
	_, hasEmpty := resolved[3]
	assert.False(t, hasEmpty)
}

func TestFindOGImageVariants(t *testing.T) {
	html := `<html><head>
		<meta name="twitter:image" content="https://img.example.com/tw.jpg">
	</head></html>`
	assert.Equal(t, "https://img.example.com/tw.jpg", findOGImage(bytes.NewBufferString(html)))

	assert.Empty(t, findOGImage(bytes.NewBufferString("<html><head></head></html>")))
}
