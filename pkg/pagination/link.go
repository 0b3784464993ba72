package pagination

import (
	"net/http"
	"strings"
)

// NextLink returns the URL of the rel="next" segment of the Link header, or ""
// when there is none. Segments without an angle-bracketed URL are skipped.
func NextLink(header http.Header) string {
	for _, value := range header.Values("Link") {
		for _, segment := range strings.Split(value, ",") {
			target, rels, ok := parseSegment(segment)
			if !ok {
				continue
			}
			for _, rel := range rels {
				if rel == "next" {
					return target
				}
			}
		}
	}
	return ""
}

// parseSegment splits `<url>; rel="a b"; type="x"` into the URL and its
// relation types.
func parseSegment(segment string) (string, []string, bool) {
	start := strings.Index(segment, "<")
	end := strings.Index(segment, ">")
	if start < 0 || end <= start+1 {
		return "", nil, false
	}
	target := strings.TrimSpace(segment[start+1 : end])
	if target == "" {
		return "", nil, false
	}

	var rels []string
	for _, param := range strings.Split(segment[end+1:], ";") {
		name, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "rel") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		rels = append(rels, strings.Fields(strings.ToLower(value))...)
	}
	return target, rels, true
}
