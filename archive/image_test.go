package archive_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/artifact/values"
)

func TestDataURLPayloadSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		want   int64
		wantOK bool
	}{
		{name: "three bytes", url: "data:image/png;base64,QUJD", want: 3, wantOK: true},
		{name: "one padding", url: "data:image/png;base64,QUI=", want: 2, wantOK: true},
		{name: "two padding", url: "data:image/png;base64,QQ==", want: 1, wantOK: true},
		{name: "empty payload", url: "data:image/png;base64,", want: 0, wantOK: true},
		{name: "bad length", url: "data:image/png;base64,QUJ", wantOK: false},
		{name: "not base64", url: "data:text/plain,hello", wantOK: false},
		{name: "not a data url", url: "https://x/y.png", wantOK: false},
		{name: "all padding", url: "data:image/png;base64,====", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := archive.DataURLPayloadSize(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMimeFromName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/png", archive.MimeFromName("a/B.PNG"))
	assert.Equal(t, "image/jpeg", archive.MimeFromName("x.jpeg"))
	assert.Equal(t, "image/jpeg", archive.MimeFromName("x.jpg"))
	assert.Equal(t, "image/gif", archive.MimeFromName("x.gif"))
	assert.Equal(t, "image/webp", archive.MimeFromName("x.webp"))
	assert.Equal(t, "image/svg+xml", archive.MimeFromName("x.svg"))
	assert.Equal(t, "application/octet-stream", archive.MimeFromName("x.bmp"))
}

func TestResolveImage(t *testing.T) {
	t.Parallel()

	a, err := archive.OpenBytes("mem", buildZip(t,
		zipEntry{name: "plugin/metadata.yml", body: "name: x\n"},
		zipEntry{name: "plugin/assets/icon.png", body: "PNGDATA"},
		zipEntry{name: "other/logo.gif", body: "GIFDATA"},
	))
	require.NoError(t, err)

	pngURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("PNGDATA"))

	tests := []struct {
		name     string
		desc     *entities.Descriptor
		loc      entities.DescriptorLocation
		wantData string
		wantURL  string
	}{
		{
			name:     "relative to descriptor location",
			desc:     &entities.Descriptor{Image: "assets/icon.png"},
			loc:      "plugin",
			wantData: pngURL,
		},
		{
			name:     "leading slash trimmed",
			desc:     &entities.Descriptor{Image: "/assets/icon.png"},
			loc:      "plugin",
			wantData: pngURL,
		},
		{
			name:     "suffix match ignoring case",
			desc:     &entities.Descriptor{Image: "LOGO.GIF"},
			wantData: "data:image/gif;base64," + base64.StdEncoding.EncodeToString([]byte("GIFDATA")),
		},
		{
			name:    "http reference becomes url",
			desc:    &entities.Descriptor{Image: "https://cdn/x.png", ImageURL: "https://fallback"},
			wantURL: "https://cdn/x.png",
		},
		{
			name:     "small data url kept",
			desc:     &entities.Descriptor{Image: "data:image/png;base64,QUJD"},
			wantData: "data:image/png;base64,QUJD",
		},
		{
			name:    "missing entry falls back to image url",
			desc:    &entities.Descriptor{Image: "nope.png", ImageURL: "https://fallback"},
			wantURL: "https://fallback",
		},
		{
			name: "no image",
			desc: &entities.Descriptor{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := archive.ResolveImage(a, tt.desc, tt.loc)
			assert.Equal(t, tt.wantData, got.Data)
			assert.Equal(t, tt.wantURL, got.URL)
		})
	}
}

func TestResolveImage_RejectsOversizedDataURL(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("A", int(values.ImageCeiling.Bytes()/3*4)+8)
	got := archive.ResolveImage(nil, &entities.Descriptor{Image: "data:image/png;base64," + payload}, "")
	assert.Empty(t, got.Data)
}
