// Package persist implements §4.7's single persistence contract: a
// compressed, versioned, atomically-written blob per index, keyed by a
// deterministic content-addressed path under a base directory.
//
// Context-free unit: pure encode/decode + atomic file write. Callers (the
// content and definition index packages) supply their own gob-encodable
// snapshot struct; this package does not know their shapes.
// External deps: github.com/cespare/xxhash/v2 (path hash),
// github.com/klauspost/compress/zstd (blob compression).
package persist

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/codesift/codesift/internal/errors"
)

// FormatVersion is bumped whenever a persisted struct's shape changes in a
// way older readers cannot decode. Load fails fast on mismatch (§4.7, §6).
const FormatVersion uint32 = 1

// Purpose tags select the file extension per §4.7/§6.
type Purpose string

const (
	PurposeContent    Purpose = "content"
	PurposeDefinition Purpose = "definitions"
	PurposeGitHistory Purpose = "git-history"
)

func (p Purpose) ext() string {
	switch p {
	case PurposeContent:
		return ".cidx"
	case PurposeDefinition:
		return ".didx"
	case PurposeGitHistory:
		return ".git-history"
	default:
		return ".bin"
	}
}

// KeyPath returns the deterministic "<base_dir>/<16-hex hash>.<ext>" path for
// (root, extensionsCSV, purpose), per §4.7's hash input
// "(canonical_root_path_bytes, extensions_csv_bytes, purpose_tag_bytes)".
func KeyPath(baseDir, canonicalRoot, extensionsCSV string, purpose Purpose) string {
	h := xxhash.New()
	_, _ = h.Write([]byte(canonicalRoot))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(extensionsCSV))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(purpose))
	sum := h.Sum64()
	name := fmt.Sprintf("%016x%s", sum, purpose.ext())
	return filepath.Join(baseDir, name)
}

// Save atomically writes value (gob-encoded, zstd-compressed, version-tagged)
// to path: encode to a buffer, write to "<path>.tmp", then rename (§4.7).
func Save(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(errors.IOError, "persist.Save:mkdir", err).WithPath(path)
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(value); err != nil {
		return errors.New(errors.IOError, "persist.Save:encode", err).WithPath(path)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return errors.New(errors.IOError, "persist.Save:zstd", err).WithPath(path)
	}
	compressed := enc.EncodeAll(raw.Bytes(), nil)
	_ = enc.Close()

	var out bytes.Buffer
	var versionBytes [4]byte
	binary.BigEndian.PutUint32(versionBytes[:], FormatVersion)
	out.Write(versionBytes[:])
	out.Write(compressed)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o644); err != nil {
		return errors.New(errors.IOError, "persist.Save:write", err).WithPath(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.New(errors.IOError, "persist.Save:rename", err).WithPath(path)
	}
	return nil
}

// Load reads path and decodes into out (a pointer to the caller's snapshot
// struct). A version mismatch or any corruption is surfaced as CorruptIndex;
// per §7 the caller treats that identically to NotFound (may rebuild).
func Load(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.NotFound, "persist.Load", err).WithPath(path)
		}
		return errors.New(errors.IOError, "persist.Load:read", err).WithPath(path)
	}
	if len(data) < 4 {
		return errors.New(errors.CorruptIndex, "persist.Load:short", fmt.Errorf("blob too short")).WithPath(path)
	}
	version := binary.BigEndian.Uint32(data[:4])
	if version != FormatVersion {
		return errors.New(errors.CorruptIndex, "persist.Load:version",
			fmt.Errorf("format version mismatch: got %d want %d", version, FormatVersion)).WithPath(path)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return errors.New(errors.IOError, "persist.Load:zstd", err).WithPath(path)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data[4:], nil)
	if err != nil {
		return errors.New(errors.CorruptIndex, "persist.Load:decompress", err).WithPath(path)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(out); err != nil {
		return errors.New(errors.CorruptIndex, "persist.Load:decode", err).WithPath(path)
	}
	return nil
}

// KnownBlob associates a persisted blob path with the project root it was
// built from, per the manifest the build driver/CLI maintains alongside the
// blobs (the hash itself is one-way, so cleanup needs this side table to
// know which root a blob belongs to).
type KnownBlob struct {
	Path string
	Root string
}

// Cleanup removes every blob in known whose recorded root no longer exists on
// disk, per §4.7 "Cleanup. removes blobs whose recorded root no longer
// exists."
func Cleanup(known []KnownBlob, exists func(root string) bool) ([]string, error) {
	var removed []string
	for _, b := range known {
		if exists(b.Root) {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, errors.New(errors.IOError, "persist.Cleanup:remove", err).WithPath(b.Path)
		}
		removed = append(removed, b.Path)
	}
	return removed, nil
}
