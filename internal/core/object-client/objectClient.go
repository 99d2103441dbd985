package objectclient

import (
	"fmt"
	"mime"
	"strings"
	"time"
)

// RawKey names an archived upstream response: raw/<dataset>/<date>/<time>-<suffix><ext>.
func RawKey(dataset string, at time.Time, suffix, contentType string) string {
	at = at.UTC()
	name := at.Format("150405.000000000")
	if suffix != "" {
		name += "-" + sanitize(suffix)
	}
	return fmt.Sprintf("raw/%s/%s/%s%s", dataset, at.Format("2006/01/02"), name, extension(contentType))
}

func ObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	switch {
	case strings.HasSuffix(mediaType, "json"):
		return ".json"
	case strings.HasSuffix(mediaType, "xml"):
		return ".xml"
	case mediaType == "text/html":
		return ".html"
	default:
		return ".bin"
	}
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
