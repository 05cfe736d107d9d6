package rtsp

import "strings"

// ResolveControlURL implements spec §4.4: produce an absolute per-
// track control URL from an SDP a=control attribute, a DESCRIBE
// Content-Base (if any), and the original request URL.
func ResolveControlURL(control, contentBase, requestURL string) string {
	if hasRTSPScheme(control) {
		return control
	}

	if contentBase != "" {
		return joinBase(contentBase, control)
	}

	base, query := splitQuery(requestURL)
	resolved := joinBase(base, control)
	if query != "" {
		resolved += "?" + query
	}
	return resolved
}

func hasRTSPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "rtsp://") || strings.HasPrefix(lower, "rtsps://")
}

func joinBase(base, suffix string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}

func splitQuery(u string) (path, query string) {
	if idx := strings.IndexByte(u, '?'); idx >= 0 {
		return u[:idx], u[idx+1:]
	}
	return u, ""
}
