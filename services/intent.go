package services

import (
	"strings"

	"place-scout/models"
)

// categoryKeywords 는 질의 토큰을 언어 중립 카테고리 코드로 해석한다.
var categoryKeywords = map[string]string{
	"museum":      "museum",
	"museums":     "museum",
	"gallery":     "art_gallery",
	"galleries":   "art_gallery",
	"park":        "park",
	"parks":       "park",
	"cafe":        "cafe",
	"cafes":       "cafe",
	"coffee":      "cafe",
	"restaurant":  "restaurant",
	"restaurants": "restaurant",
	"bar":         "bar",
	"bars":        "bar",
	"temple":      "temple",
	"temples":     "temple",
	"church":      "church",
	"churches":    "church",
	"castle":      "castle",
	"castles":     "castle",
	"beach":       "beach",
	"beaches":     "beach",
	"market":      "market",
	"markets":     "market",
	"hotel":       "hotel",
	"hotels":      "hotel",
	"landmark":    "landmark",
	"landmarks":   "landmark",
}

// ParseQueryIntent 는 자유 질의를 휴리스틱으로 구조화한다.
// "design museums in copenhagen" → {Category: museum, Locality: copenhagen, FreeText: "design museums"}
// 짧은 질의는 AI 를 거치지 않으므로 이 결과가 그대로 쓰인다.
func ParseQueryIntent(query string) models.SearchIntent {
	query = strings.TrimSpace(query)
	intent := models.SearchIntent{FreeText: query}
	if query == "" {
		return intent
	}

	lower := strings.ToLower(query)

	// 후행 " in <locality>" 패턴을 지역으로 분리한다.
	if idx := strings.LastIndex(lower, " in "); idx > 0 {
		locality := strings.TrimSpace(query[idx+len(" in "):])
		if locality != "" && !strings.Contains(locality, " in ") {
			intent.Locality = locality
			intent.FreeText = strings.TrimSpace(query[:idx])
			lower = strings.ToLower(intent.FreeText)
		}
	}

	for _, token := range strings.Fields(lower) {
		if code, ok := categoryKeywords[token]; ok {
			intent.Category = code
			break
		}
	}

	return intent
}

func wordCount(query string) int {
	return len(strings.Fields(query))
}

// normalizeName 은 이름 기반 중복 판정을 위한 키를 만든다.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
