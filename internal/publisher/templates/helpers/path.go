package helpers

import (
	"net/url"
	"strings"
)

// Path builds a console URL under the mount base. The first element is a route and may
// contain slashes; later elements are escaped as single segments, so ids such as
// "release/1" cannot reach another route.
func Path(base, route string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(strings.TrimSpace(base), "/"))
	if route = strings.Trim(route, "/"); route != "" {
		b.WriteString("/" + route)
	}
	for _, seg := range segments {
		b.WriteString("/" + url.PathEscape(seg))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
