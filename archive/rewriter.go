package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"gopkg.in/yaml.v3"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
)

// PatchDescriptor sets the keys of patch in every descriptor entry of the
// archive at path, replacing the file in place.
//
// Entries are copied to a temporary sibling: directories and ordinary
// entries keep their compressed bytes; descriptors are re-serialized with
// key order preserved and the original compression method. A descriptor
// that does not parse as a YAML mapping is copied unchanged.
func PatchDescriptor(ctx context.Context, path string, patch map[string]string) error {
	src, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &entities.NotFoundError{What: path}
		}
		return &entities.ArchiveCorruptError{Source: path, Err: err}
	}

	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := rewriteEntries(ctx, &src.Reader, tmpPath, patch); err != nil {
		_ = src.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := src.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return entities.NewIOError("close", path, err)
	}

	if err := os.Remove(path); err != nil {
		_ = os.Remove(tmpPath)
		return entities.NewIOError("remove", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return entities.NewIOError("rename", tmpPath, err)
	}
	return nil
}

func rewriteEntries(ctx context.Context, src *zip.Reader, tmpPath string, patch map[string]string) (err error) {
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return entities.NewIOError("create", tmpPath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = entities.NewIOError("close", tmpPath, cerr)
		}
	}()

	w := zip.NewWriter(out)
	w.SetComment(src.Comment)

	for _, f := range src.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		if len(patch) == 0 || !IsDescriptorName(f.Name) {
			if err := w.Copy(f); err != nil {
				return entities.NewIOError("copy entry", f.Name, err)
			}
			continue
		}

		if err := writeDescriptor(w, f, patch); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return entities.NewIOError("finalize", tmpPath, err)
	}
	return nil
}

func writeDescriptor(w *zip.Writer, f *zip.File, patch map[string]string) error {
	rc, err := f.Open()
	if err != nil {
		return &entities.ArchiveCorruptError{Source: f.Name, Err: err}
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return &entities.ArchiveCorruptError{Source: f.Name, Err: err}
	}

	merged, err := MergeDescriptor(data, patch)
	if err != nil {
		if cerr := w.Copy(f); cerr != nil {
			return entities.NewIOError("copy entry", f.Name, cerr)
		}
		return nil
	}

	fh := &zip.FileHeader{
		Name:     f.Name,
		Comment:  f.Comment,
		Method:   f.Method,
		Modified: f.Modified,
	}
	fh.SetMode(f.Mode())

	dst, err := w.CreateHeader(fh)
	if err != nil {
		return entities.NewIOError("write entry", f.Name, err)
	}
	if _, err := dst.Write(merged); err != nil {
		return entities.NewIOError("write entry", f.Name, err)
	}
	return nil
}

// MergeDescriptor sets the keys of patch on the top-level mapping of a YAML
// document, keeping existing keys and comments in place. Keys are appended
// in sorted order when absent. An empty document becomes a new mapping.
func MergeDescriptor(data []byte, patch map[string]string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("unexpected document structure")
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		*root = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("descriptor root is not a mapping")
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		setMappingValue(root, k, patch[k])
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setMappingValue(mapping *yaml.Node, key, value string) {
	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = valueNode
			return
		}
	}

	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		valueNode,
	)
}
