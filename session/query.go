package session

import (
	"net/url"
	"strings"
)

// ExtractParam returns the percent-decoded value of the first name= occurrence in rawURL.
// The value runs until the next '&' or the end of the string. A missing parameter
// and an empty one both yield "".
func ExtractParam(rawURL, name string) string {
	key := name + "="
	i := strings.Index(rawURL, key)
	if i < 0 {
		return ""
	}
	v := rawURL[i+len(key):]
	if amp := strings.IndexByte(v, '&'); amp >= 0 {
		v = v[:amp]
	}
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		// keep the raw text rather than dropping the value
		return v
	}
	return decoded
}

// HasParam reports whether name= appears anywhere in rawURL.
func HasParam(rawURL, name string) bool {
	return strings.Contains(rawURL, name+"=")
}
