// Package model defines the core domain models used throughout the application.
package model

// CategoryType indicates whether a category is for income or expense transactions.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// FallbackCategoryID is the miscellaneous bucket that absorbs transactions no
// other category claims.
const FallbackCategoryID = "khac"

// Category represents one entry of the immutable category catalog. Keywords
// are stored pre-normalized (lowercase, accents stripped).
type Category struct {
	ID       string
	Name     string
	Type     CategoryType
	Icon     string
	Keywords []string
}

// AmountRange is the typical [Low, High] amount window for a category, in VND.
// A zero range matches nothing.
type AmountRange struct {
	Low  float64
	High float64
}

// Contains reports whether amount falls inside the range.
func (r AmountRange) Contains(amount float64) bool {
	if r.Low == 0 && r.High == 0 {
		return false
	}
	return amount >= r.Low && amount <= r.High
}
