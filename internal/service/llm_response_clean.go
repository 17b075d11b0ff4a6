package service

import (
	"regexp"
	"strings"
)

var (
	fenceStartRe = regexp.MustCompile("(?is)^\\s*```(?:markdown|md|text)?\\s*")
	fenceEndRe   = regexp.MustCompile("(?is)\\s*```\\s*$")
	rolePrefixRe = regexp.MustCompile(`(?i)^\s*(assistant|advisor|asesor)\s*:\s*`)
)

// cleanNarrative quita BOM, fences que envuelven toda la respuesta y prefijos de rol
// que algunos modelos agregan. Si la limpieza deja el texto vacío se devuelve el original.
func cleanNarrative(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) > 6 {
		s = fenceStartRe.ReplaceAllString(s, "")
		s = fenceEndRe.ReplaceAllString(s, "")
	}
	s = rolePrefixRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return strings.TrimSpace(raw)
	}
	return s
}
