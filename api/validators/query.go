package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
)

// QueryInt reads an integer query parameter bounded by [min, max].
func QueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").
			WithDetails(map[string]string{key: "must be a whole number"})
	}
	if n < min || n > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").
			WithDetails(map[string]string{key: "must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)})
	}
	return n, nil
}

// SearchQuery collapses whitespace in a free-text query parameter and keeps at
// most maxRunes characters.
func SearchQuery(r *http.Request, key string, maxRunes int) string {
	term := strings.Join(strings.Fields(r.URL.Query().Get(key)), " ")
	if maxRunes > 0 {
		if runes := []rune(term); len(runes) > maxRunes {
			term = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return term
}
