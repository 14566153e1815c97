package services

import (
	"sort"

	"place-scout/models"
)

// DisplayTags 는 표시 언어에 맞는 태그 목록을 만든다.
// 순서: 카테고리 → 우선순위 순 AI 태그 최대 2개. 각 태그는 tag[lang] → en → id
// 순서로 폴백하고, 전체는 중복 제거 후 3개로 자른다.
// 레거시 평문 태그는 언어와 무관하게 그대로 통과한다.
func DisplayTags(p *models.Place, lang string) []string {
	tags := make([]string, 0, models.MaxDisplayTags)
	seen := make(map[string]struct{}, models.MaxDisplayTags)

	appendTag := func(v string) {
		if v == "" || len(tags) >= models.MaxDisplayTags {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		tags = append(tags, v)
	}

	appendTag(localizedCategory(p, lang))

	aiTags := make([]models.AITagElement, len(p.AITags))
	copy(aiTags, p.AITags)
	sort.SliceStable(aiTags, func(i, j int) bool {
		return aiTags[i].Priority < aiTags[j].Priority
	})
	if len(aiTags) > models.MaxAITags {
		aiTags = aiTags[:models.MaxAITags]
	}
	for _, t := range aiTags {
		appendTag(t.Render(lang))
	}

	for _, t := range p.LegacyTags {
		appendTag(t)
	}

	return tags
}

// localizedCategory 는 언어별 카테고리 표기를 찾고, 없으면 en → 코드 순서로 폴백한다.
func localizedCategory(p *models.Place, lang string) string {
	if v, ok := p.CategoryNames[lang]; ok && v != "" {
		return v
	}
	if v, ok := p.CategoryNames["en"]; ok && v != "" {
		return v
	}
	return p.Category
}
