package imagecheck

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"place-scout/config"
	"place-scout/httpclient"
	"place-scout/logger"
)

// Checker 는 커버 이미지 참조의 도달 가능성을 검증한다.
// 빈 참조, 해석 불가, 에러 응답, 기준 미달 크기는 모두 "도달 불가"로 본다.
type Checker struct {
	client  *http.Client
	timeout time.Duration
	minW    int
	minH    int
}

func New() *Checker {
	cfg := config.GetConfig().Image
	timeout := time.Duration(cfg.CheckTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Checker{
		client:  httpclient.New(httpclient.Config{Timeout: timeout}),
		timeout: timeout,
		minW:    cfg.MinWidth,
		minH:    cfg.MinHeight,
	}
}

// NewWithClient 는 테스트용으로 주입된 클라이언트를 사용한다.
func NewWithClient(client *http.Client, minW, minH int) *Checker {
	return &Checker{client: client, timeout: 3 * time.Second, minW: minW, minH: minH}
}

// ResolveCover 는 후보 참조들 중 첫 번째로 도달 가능한 이미지 URL 을 돌려준다.
// 참조가 HTML 페이지로 해석되는 경우 og:image 메타를 한 단계만 따라가 본다.
func (c *Checker) ResolveCover(ctx context.Context, candidates []string) (string, bool) {
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if resolved, ok := c.check(ctx, raw, true); ok {
			return resolved, true
		}
	}
	return "", false
}

// ResolveCovers 는 장소별 후보 목록을 동시에 검증한다.
// 검사들은 서로 독립이며, 느린/실패하는 검사가 다른 검사를 막지 않는다.
// 반환 맵의 키는 입력 인덱스다.
func (c *Checker) ResolveCovers(ctx context.Context, candidateSets [][]string) map[int]string {
	var mu sync.Mutex
	resolved := make(map[int]string, len(candidateSets))

	var wg sync.WaitGroup
	for i, candidates := range candidateSets {
		wg.Add(1)
		go func(idx int, urls []string) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			if url, ok := c.ResolveCover(checkCtx, urls); ok {
				mu.Lock()
				resolved[idx] = url
				mu.Unlock()
			}
		}(i, candidates)
	}
	wg.Wait()
	return resolved
}

func (c *Checker) check(ctx context.Context, rawURL string, followHTML bool) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.DebugWithFields("image check failed", logger.Fields{"url": rawURL, "error": err.Error()})
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.DebugWithFields("image check non-200", logger.Fields{"url": rawURL, "status": resp.StatusCode})
		return "", false
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "image/"):
		if c.dimensionsOK(resp.Body) {
			return rawURL, true
		}
		return "", false
	case strings.HasPrefix(contentType, "text/html") && followHTML:
		// 사진 페이지가 돌아온 경우: og:image 를 한 번만 따라가 본다.
		if metaURL := findOGImage(resp.Body); metaURL != "" {
			return c.check(ctx, metaURL, false)
		}
		return "", false
	default:
		return "", false
	}
}

// dimensionsOK 는 이미지 헤더만 디코딩해 최소 크기를 확인한다.
func (c *Checker) dimensionsOK(r io.Reader) bool {
	if c.minW <= 0 && c.minH <= 0 {
		return true
	}
	cfg, _, err := image.DecodeConfig(io.LimitReader(r, 1<<20))
	if err != nil {
		// 헤더 디코딩 실패는 포맷 미지원일 수 있으므로 통과시킨다.
		return true
	}
	return cfg.Width >= c.minW && cfg.Height >= c.minH
}

// findOGImage 는 HTML 에서 Open Graph 이미지 메타의 content 를 찾는다.
func findOGImage(r io.Reader) string {
	doc, err := html.Parse(io.LimitReader(r, 1<<20))
	if err != nil {
		return ""
	}

	candidates := map[string]struct{}{
		"og:image":            {},
		"og:image:url":        {},
		"og:image:secure_url": {},
		"twitter:image":       {},
	}

	var result string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil || result != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var attrValue string
			var content string
			for _, a := range n.Attr {
				keyLower := strings.ToLower(a.Key)
				if keyLower == "property" || keyLower == "name" {
					attrValue = strings.ToLower(a.Val)
				} else if keyLower == "content" {
					content = a.Val
				}
			}
			if content != "" {
				if _, ok := candidates[attrValue]; ok {
					result = content
					return
				}
			}
		}
		for ch := n.FirstChild; ch != nil && result == ""; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return result
}
