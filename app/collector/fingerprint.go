package collector

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// Fingerprint produces the dedup key for an item within its (topic, source)
// scope. Title and URL are case-folded and whitespace-collapsed so trivial
// reformatting upstream does not defeat deduplication. Items without a URL
// fall back to title, source and a body prefix.
func Fingerprint(source, title, body, url string) string {
	title = normalize(title)
	url = strings.TrimSpace(url)

	var content string
	if url != "" {
		content = title + "|" + normalize(url)
	} else {
		prefix := normalize(body)
		if len(prefix) > 256 {
			prefix = prefix[:256]
		}
		content = title + "|" + source + "|" + prefix
	}

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func normalize(s string) string {
	// Caser instances are stateful, so each call gets its own.
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}
