package archive

import (
	"bytes"
	"errors"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/parser"
)

// maxDescriptorSize caps how much of a descriptor candidate is read.
const maxDescriptorSize = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var descriptorParser = parser.NewYamlDescriptorParser()

// IsDescriptorName reports whether an entry name refers to a descriptor:
// its base name equals metadata.yml, ignoring case.
func IsDescriptorName(name string) bool {
	if strings.HasSuffix(name, "/") {
		return false
	}
	return strings.EqualFold(path.Base(name), entities.DescriptorFileName)
}

// ParseDescriptor decodes descriptor bytes. The content must be valid UTF-8.
func ParseDescriptor(data []byte) (*entities.Descriptor, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New("content is not valid UTF-8")
	}
	return descriptorParser.Parse(data)
}

// ExtractDescriptor returns the first descriptor candidate, in archive
// order, that parses, together with its location. Unparseable candidates
// are skipped; if every candidate failed the last failure is reported as
// DescriptorInvalid. With no candidate at all it returns DescriptorNotFound.
func ExtractDescriptor(a *Archive) (*entities.Descriptor, entities.DescriptorLocation, error) {
	var lastErr error
	var lastEntry string

	for _, e := range a.Entries() {
		if !IsDescriptorName(e.Name()) {
			continue
		}

		d, err := readDescriptorEntry(e)
		if err != nil {
			lastErr, lastEntry = err, e.Name()
			continue
		}
		return d, entities.LocationOf(e.Name()), nil
	}

	if lastErr != nil {
		return nil, "", &entities.DescriptorInvalidError{Entry: lastEntry, Err: lastErr}
	}
	return nil, "", entities.ErrDescriptorNotFound
}

func readDescriptorEntry(e Entry) (*entities.Descriptor, error) {
	data, err := e.ReadAll(maxDescriptorSize)
	if err != nil {
		return nil, err
	}
	return ParseDescriptor(data)
}

// ReadDescriptor opens the archive at path and extracts its descriptor.
func ReadDescriptor(path string) (*entities.Descriptor, entities.DescriptorLocation, error) {
	a, err := Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = a.Close() }()

	return ExtractDescriptor(a)
}
