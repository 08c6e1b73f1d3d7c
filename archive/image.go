package archive

import (
	"encoding/base64"
	"strings"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

// Image is the displayable form of a descriptor image reference.
type Image struct {
	// Data is an inline data URL, when the image could be embedded.
	Data string
	// URL is a remote image location the caller may fetch itself.
	URL string
}

// ResolveImage turns the image reference of d into an Image.
//
// A data URL is kept if its decoded payload fits the image ceiling. An
// http(s) reference becomes the URL. Anything else is an entry path,
// resolved against loc and embedded as a data URL. The descriptor's
// imageUrl is the fallback URL.
func ResolveImage(a *Archive, d *entities.Descriptor, loc entities.DescriptorLocation) Image {
	if d == nil {
		return Image{}
	}

	img := Image{URL: d.ImageURL}
	ref := d.Image

	switch {
	case ref == "":
	case strings.HasPrefix(ref, "data:"):
		if size, ok := DataURLPayloadSize(ref); ok && values.ImageCeiling.Allows(size) {
			img.Data = ref
		}
	case netutil.IsHTTPURL(ref):
		img.URL = ref
	default:
		if a != nil {
			img.Data = embedEntry(a, loc, ref)
		}
	}

	return img
}

// embedEntry finds the first file entry matching the reference and encodes
// it as a data URL. Matching accepts the location-resolved path, the bare
// reference, or a case-insensitive suffix.
func embedEntry(a *Archive, loc entities.DescriptorLocation, ref string) string {
	rel := strings.TrimLeft(ref, "/")
	full := loc.Resolve(ref)
	relLower := strings.ToLower(rel)

	for _, e := range a.Entries() {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(name, full) && !strings.EqualFold(name, rel) &&
			!strings.HasSuffix(strings.ToLower(name), relLower) {
			continue
		}

		data, err := e.ReadAll(values.ImageCeiling.Bytes())
		if err != nil {
			return ""
		}
		return DataURL(name, data)
	}
	return ""
}

// DataURL encodes data as a base64 data URL, guessing the mime type from name.
func DataURL(name string, data []byte) string {
	return "data:" + MimeFromName(name) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// MimeFromName guesses an image mime type from the file extension.
func MimeFromName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".svg"):
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// DataURLPayloadSize estimates the decoded size of a base64 data URL
// without decoding it. ok is false for non-base64 or malformed payloads.
func DataURLPayloadSize(url string) (size int64, ok bool) {
	comma := strings.IndexByte(url, ',')
	if comma < 0 || !strings.HasPrefix(strings.ToLower(url), "data:") {
		return 0, false
	}
	if !strings.Contains(strings.ToLower(url[:comma]), ";base64") {
		return 0, false
	}

	payload := url[comma+1:]
	n := len(payload)
	if n == 0 {
		return 0, true
	}
	if n%4 != 0 {
		return 0, false
	}
	padding := len(payload) - len(strings.TrimRight(payload, "="))
	if padding > 2 {
		return 0, false
	}
	return int64(n/4*3 - padding), true
}
