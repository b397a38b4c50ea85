package filename

import (
	"fmt"
	"net/url"
	"strings"
)

var illegal = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "_",
	":", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Sanitize replaces every character that is illegal in a path component on
// common filesystems with '_'.
func Sanitize(name string) string {
	return illegal.Replace(name)
}

// Escape percent-encodes everything but unreserved characters, spaces
// included, for use in a response header.
func Escape(name string) string {
	// QueryEscape turns spaces into '+' and a literal '+' into %2B
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// ContentDisposition returns the attachment header value for name.
func ContentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, Escape(name))
}
