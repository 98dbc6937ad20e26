package k8sutil

import (
	"regexp"
	"strings"
)

const maxNameLength = 63

var (
	invalidDNSChars = regexp.MustCompile(`[^a-z0-9-]+`)
	leadingDashes   = regexp.MustCompile(`^-+`)
	trailingDashes  = regexp.MustCompile(`-+$`)
)

// KubifyName normalizes name into a DNS-1123 label: lowercase, each
// run of characters other than [a-z0-9-] replaced by a single dash
// (dashes already present are kept as they are), leading/trailing
// dashes trimmed, truncated to 63 characters. A ModelGroup name is
// already required to match this shape (config.validate.go), so this
// exists for names formed by composition (e.g. the mixed-capacity
// baseline Deployment's "-baseline" suffix) rather than to rescue
// arbitrary input.
func KubifyName(name string) string {
	out := strings.ToLower(name)
	out = invalidDNSChars.ReplaceAllString(out, "-")
	out = leadingDashes.ReplaceAllString(out, "")
	out = trailingDashes.ReplaceAllString(out, "")
	if len(out) > maxNameLength {
		out = out[:maxNameLength]
		out = trailingDashes.ReplaceAllString(out, "")
	}
	return out
}
