package models

// Field length limits, in bytes.
const (
	MaxIdLen          = 100
	MaxNameLen        = 100
	MaxTitleLen       = 100
	MaxCategoryLen    = 50
	MaxDescriptionLen = 1000
	MaxCoverLetterLen = 2000
)

// MaxAmount bounds budgets and prices, which are stored with two decimals.
const MaxAmount = 1e12
