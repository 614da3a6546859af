package vector

import (
	"fmt"
	"unicode/utf8"
)

// ValidateName checks the agent name length.
func ValidateName(name string) error {
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return NewError(KindValidation, "validate", "", fmt.Errorf("name has %d characters, max %d", n, MaxNameLength))
	}
	return nil
}

// ValidateKeywords checks keyword cardinality and per-element length.
func ValidateKeywords(keywords []string) error {
	if len(keywords) > MaxKeywords {
		return NewError(KindValidation, "validate", "", fmt.Errorf("%d keywords, max %d", len(keywords), MaxKeywords))
	}
	for i, kw := range keywords {
		if n := utf8.RuneCountInString(kw); n > MaxKeywordLength {
			return NewError(KindValidation, "validate", "", fmt.Errorf("keyword %d has %d characters, max %d", i, n, MaxKeywordLength))
		}
	}
	return nil
}

// ValidateRecord checks a record before it is written.
func ValidateRecord(r *Record, dim int) error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if err := ValidateKeywords(r.Keywords); err != nil {
		return err
	}
	if len(r.Embedding) != dim {
		return NewError(KindValidation, "validate", "", fmt.Errorf("embedding dimension %d, want %d", len(r.Embedding), dim))
	}
	return nil
}
