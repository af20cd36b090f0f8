package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPadRe = regexp.MustCompile(`\{NUMBER:(\d+)\}`)

// Render fills a document number template.
//
// Supported tokens: {PREFIX}, {YEAR}, {TYPE}, {NUMBER} and {NUMBER:N} where N
// is the zero-padded width. Render is pure.
func Render(template, prefix, typeTag string, year int, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("number template is empty")
	}
	if !strings.Contains(template, "{NUMBER") {
		return "", fmt.Errorf("number template has no {NUMBER} token: %s", template)
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid sequence: %d", seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{PREFIX}", prefix)
	out = strings.ReplaceAll(out, "{YEAR}", strconv.Itoa(year))
	out = strings.ReplaceAll(out, "{TYPE}", typeTag)
	out = strings.ReplaceAll(out, "{NUMBER}", strconv.FormatInt(seq, 10))

	var padErr error
	out = numberPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := numberPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 || width > 18 {
			padErr = fmt.Errorf("invalid number width in %s", m)
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})
	if padErr != nil {
		return "", padErr
	}

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in number format: %s", out)
	}
	return out, nil
}
