package discovery

import (
	"regexp"

	"github.com/ltmtri/vnspend/internal/model"
)

// Heuristic recognizes one emergent spending or income theme inside the
// miscellaneous bucket. Patterns run against normalized text, so they are
// written accent-free.
type Heuristic struct {
	Name    string
	Type    model.CategoryType
	Icon    string
	Color   string
	pattern *regexp.Regexp
}

// Matches reports whether the normalized description fits this theme.
func (h Heuristic) Matches(normalized string) bool {
	return h.pattern.MatchString(normalized)
}

// DefaultHeuristics returns the built-in theme detectors. Order matters: the
// first match wins.
func DefaultHeuristics() []Heuristic {
	return []Heuristic{
		{
			Name:    "Thú cưng",
			Type:    model.CategoryTypeExpense,
			Icon:    "🐕",
			Color:   "#8D6E63",
			pattern: regexp.MustCompile(`\b(thu cung|pet shop|pet|thu y|pate|royal canin|cat litter)\b`),
		},
		{
			Name:    "Làm đẹp",
			Type:    model.CategoryTypeExpense,
			Icon:    "💅",
			Color:   "#EC407A",
			pattern: regexp.MustCompile(`\b(spa|nail|lam toc|cat toc|salon|my pham|skincare|son moi)\b`),
		},
		{
			Name:    "Sửa nhà",
			Type:    model.CategoryTypeExpense,
			Icon:    "🔨",
			Color:   "#795548",
			pattern: regexp.MustCompile(`\b(sua nha|sua chua|tho dien|tho nuoc|son nha|thay khoa|ong nuoc)\b`),
		},
		{
			Name:    "Từ thiện",
			Type:    model.CategoryTypeExpense,
			Icon:    "🤝",
			Color:   "#66BB6A",
			pattern: regexp.MustCompile(`\b(tu thien|quyen gop|ung ho|charity)\b`),
		},
		{
			Name:    "Bảo hiểm",
			Type:    model.CategoryTypeExpense,
			Icon:    "🛡️",
			Color:   "#42A5F5",
			pattern: regexp.MustCompile(`\b(bao hiem|bhyt|bhxh|insurance)\b`),
		},
		{
			Name:    "Dịch vụ đăng ký",
			Type:    model.CategoryTypeExpense,
			Icon:    "📺",
			Color:   "#AB47BC",
			pattern: regexp.MustCompile(`\b(netflix|spotify|youtube premium|icloud|goi cuoc|subscription)\b`),
		},
		{
			Name:    "Sở thích",
			Type:    model.CategoryTypeExpense,
			Icon:    "🎨",
			Color:   "#FFA726",
			pattern: regexp.MustCompile(`\b(mo hinh|lego|board game|cau ca|guitar|may anh|hobby)\b`),
		},
		{
			Name:    "Cho thuê",
			Type:    model.CategoryTypeIncome,
			Icon:    "🏠",
			Color:   "#26A69A",
			pattern: regexp.MustCompile(`\b(cho thue|tien thue nha|tien tro|tien phong tro)\b`),
		},
		{
			Name:    "Thưởng",
			Type:    model.CategoryTypeIncome,
			Icon:    "🎁",
			Color:   "#FFD54F",
			pattern: regexp.MustCompile(`\b(thuong tet|thuong quy|thuong kpi|bonus|hoa hong)\b`),
		},
		{
			Name:    "Thu nhập phụ",
			Type:    model.CategoryTypeIncome,
			Icon:    "💼",
			Color:   "#78909C",
			pattern: regexp.MustCompile(`\b(ban hang online|freelance|lam them|day them|nhuan but)\b`),
		},
	}
}
