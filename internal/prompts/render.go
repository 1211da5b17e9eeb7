package prompts

import "strings"

const (
	extractionFile    = "extraction.json"
	extractionKey     = "extract-price-list"
	noSpecificRuleKey = "no-specific-rules"
)

// Render builds the full extraction instruction for one unit: general rules,
// the target file name, the file's specific rules (or the generic fallback)
// and the closing checklist. The provider label is what every record must
// carry in Proveedor.
func Render(fileName, provider string) string {
	rules, ok := Rules(fileName)
	if !ok {
		rules = Fallback()
	}

	template := MustGet(extractionFile, extractionKey)
	prompt := Format(template, map[string]string{
		"Proveedor": provider,
		"Archivo":   fileName,
		"Reglas":    rules,
	})
	return strings.TrimSpace(prompt)
}

// Fallback returns the sentence used when a file has no specific rules.
func Fallback() string {
	return MustGet(extractionFile, noSpecificRuleKey)
}
