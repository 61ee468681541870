package monitor

import (
	"fmt"
	"regexp"
)

// flashPrefixPattern matches one or more stacked flash prefixes at the start of a title.
var flashPrefixPattern = regexp.MustCompile(`^(\[\d+ new articles\])+`)

// flashPrefix is prepended to the title while new articles are being announced.
func flashPrefix(n int) string {
	return fmt.Sprintf("[%d new articles]", n)
}

// stripFlashPrefix removes any leading flash prefix left by an earlier announcement.
// Bracketed text that does not look like a prefix is left untouched.
func stripFlashPrefix(title string) string {
	return flashPrefixPattern.ReplaceAllString(title, "")
}
