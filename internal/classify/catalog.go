// Package classify implements the in-process cascade layers: keyword scoring
// and fuzzy (typo-tolerant) scoring over a shared category catalog.
package classify

import (
	"log/slog"

	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
)

// Entry pairs a catalog category with its classifier tuning data: the
// typical amount window and the prior weight applied to its raw score.
type Entry struct {
	Category model.Category
	Amounts  model.AmountRange
	Weight   float64
}

// Registry is the read-only category catalog shared by all classifiers. It
// is built once at startup and injected by reference; it is never mutated
// afterwards.
type Registry struct {
	entries []Entry
	byID    map[string]int
}

// NewRegistry builds a registry from catalog entries. Keywords are
// normalized on the way in so matching never has to re-normalize the
// catalog side. Malformed entries (empty ID, non-positive weight) are
// logged and skipped rather than failing the whole catalog.
func NewRegistry(n *normalize.Normalizer, entries []Entry) *Registry {
	r := &Registry{
		byID: make(map[string]int),
	}

	for _, e := range entries {
		if e.Category.ID == "" || e.Weight <= 0 {
			slog.Warn("skipping malformed catalog entry",
				"id", e.Category.ID,
				"name", e.Category.Name,
				"weight", e.Weight)
			continue
		}
		if _, dup := r.byID[e.Category.ID]; dup {
			slog.Warn("skipping duplicate catalog entry", "id", e.Category.ID)
			continue
		}

		normalized := make([]string, 0, len(e.Category.Keywords))
		for _, kw := range e.Category.Keywords {
			if nk := n.Normalize(kw); nk != "" {
				normalized = append(normalized, nk)
			}
		}
		e.Category.Keywords = normalized

		r.byID[e.Category.ID] = len(r.entries)
		r.entries = append(r.entries, e)
	}

	return r
}

// Entries returns all catalog entries in insertion order.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Get looks up one entry by category ID.
func (r *Registry) Get(id string) (Entry, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx], true
}

// Categories returns the catalog as plain categories.
func (r *Registry) Categories() []model.Category {
	cats := make([]model.Category, len(r.entries))
	for i, e := range r.entries {
		cats[i] = e.Category
	}
	return cats
}

// OfType returns the categories of one transaction type.
func (r *Registry) OfType(t model.CategoryType) []model.Category {
	var cats []model.Category
	for _, e := range r.entries {
		if e.Category.Type == t {
			cats = append(cats, e.Category)
		}
	}
	return cats
}

// Len returns the number of catalog entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// DefaultEntries returns the built-in Vietnamese category catalog.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Category: model.Category{
				ID:   "an_uong",
				Name: "Ăn uống",
				Type: model.CategoryTypeExpense,
				Icon: "🍜",
				Keywords: []string{
					"an", "com", "pho", "bun", "banh mi", "cafe", "ca phe",
					"tra sua", "an sang", "an trua", "an toi", "quan an",
					"nha hang", "do an", "grabfood", "shopeefood",
					"starbucks", "highlands", "kfc", "lotteria",
				},
			},
			Amounts: model.AmountRange{Low: 10_000, High: 500_000},
			Weight:  1.0,
		},
		{
			Category: model.Category{
				ID:   "di_chuyen",
				Name: "Di chuyển",
				Type: model.CategoryTypeExpense,
				Icon: "🛵",
				Keywords: []string{
					"grab", "be", "gojek", "taxi", "xe om", "xang", "gui xe",
					"ve xe", "xe buyt", "tau", "ve may bay",
				},
			},
			Amounts: model.AmountRange{Low: 10_000, High: 2_000_000},
			Weight:  1.0,
		},
		{
			Category: model.Category{
				ID:   "mua_sam",
				Name: "Mua sắm",
				Type: model.CategoryTypeExpense,
				Icon: "🛍️",
				Keywords: []string{
					"shopee", "lazada", "tiki", "sendo", "quan ao", "giay",
					"tui xach", "my pham", "sieu thi", "mua do",
				},
			},
			Amounts: model.AmountRange{Low: 50_000, High: 3_000_000},
			Weight:  1.0,
		},
		{
			Category: model.Category{
				ID:   "hoa_don",
				Name: "Hóa đơn & Tiện ích",
				Type: model.CategoryTypeExpense,
				Icon: "🧾",
				Keywords: []string{
					"tien dien", "tien nuoc", "internet", "wifi", "tien nha",
					"thue nha", "hoa don", "cap quang", "truyen hinh",
					"dien thoai", "nap the",
				},
			},
			Amounts: model.AmountRange{Low: 100_000, High: 5_000_000},
			Weight:  1.0,
		},
		{
			Category: model.Category{
				ID:   "giai_tri",
				Name: "Giải trí",
				Type: model.CategoryTypeExpense,
				Icon: "🎮",
				Keywords: []string{
					"phim", "game", "karaoke", "du lich", "netflix",
					"spotify", "ve so", "nhau", "bia",
				},
			},
			Amounts: model.AmountRange{Low: 20_000, High: 1_000_000},
			Weight:  0.9,
		},
		{
			Category: model.Category{
				ID:   "suc_khoe",
				Name: "Sức khỏe",
				Type: model.CategoryTypeExpense,
				Icon: "💊",
				Keywords: []string{
					"thuoc", "kham", "benh vien", "bac si", "nha khoa",
					"vitamin", "nha thuoc",
				},
			},
			Amounts: model.AmountRange{Low: 50_000, High: 2_000_000},
			Weight:  1.0,
		},
		{
			Category: model.Category{
				ID:   "giao_duc",
				Name: "Giáo dục",
				Type: model.CategoryTypeExpense,
				Icon: "📚",
				Keywords: []string{
					"hoc phi", "sach", "khoa hoc", "tieng anh", "lop hoc",
					"hoc them",
				},
			},
			Amounts: model.AmountRange{Low: 100_000, High: 10_000_000},
			Weight:  1.0,
		},
		{
			Category: model.Category{
				ID:       model.FallbackCategoryID,
				Name:     "Khác",
				Type:     model.CategoryTypeExpense,
				Icon:     "📦",
				Keywords: nil,
			},
			Weight: 0.8,
		},
		{
			Category: model.Category{
				ID:   "luong",
				Name: "Lương",
				Type: model.CategoryTypeIncome,
				Icon: "💰",
				Keywords: []string{
					"luong", "salary", "tra luong", "thuong", "thuong tet",
				},
			},
			Amounts: model.AmountRange{Low: 1_000_000, High: 100_000_000},
			Weight:  1.0,
		},
		{
			Category: model.Category{
				ID:   "thu_nhap_khac",
				Name: "Thu nhập khác",
				Type: model.CategoryTypeIncome,
				Icon: "💵",
				Keywords: []string{
					"hoan tien", "tien lai", "ban hang", "chuyen khoan den",
				},
			},
			Weight: 0.8,
		},
	}
}
