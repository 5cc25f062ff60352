package interp

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CacheKey derives the shared-cache key for a subject. The key is a hash
// of a canonical serialization with map keys sorted, so identical logical
// inputs always hash identically regardless of structural ordering. It is
// content-addressed: chart id is deliberately absent, two charts with the
// same placement share the entry.
func CacheKey(kind string, params map[string]string, model, contentVersion, language string) string {
	var b strings.Builder
	b.WriteString("kind=")
	b.WriteString(kind)
	b.WriteString(";params={")

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	b.WriteString("};model=")
	b.WriteString(model)
	b.WriteString(";version=")
	b.WriteString(contentVersion)
	b.WriteString(";lang=")
	b.WriteString(language)

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
