package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash digests title and text separated by a newline.
func ContentHash(title, text string) string {
	sum := sha256.Sum256([]byte(title + "\n" + text))
	return hex.EncodeToString(sum[:])
}

// TitleKey identifies the latest-title slot of a source.
func TitleKey(sourceID, title string) string {
	return sourceID + "\x00" + strings.ToLower(title)
}
