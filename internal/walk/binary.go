package walk

import (
	"bytes"
	"path/filepath"
	"strings"
)

// binaryExtensions lists extensions the walker rejects without opening the
// file: assets, archives, compiled output and media. Text formats that merely
// look generated (.svg, .map, .min.js) are NOT listed — the tokenizer handles
// them fine and grep over minified vendor bundles is occasionally wanted.
var binaryExtensions = newExtSet(
	// fonts
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	// images
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp", ".tiff", ".tif",
	// archives
	".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar", ".jar", ".war", ".ear",
	// executables and objects
	".exe", ".dll", ".so", ".dylib", ".a", ".o", ".obj", ".bin",
	// media
	".mp3", ".mp4", ".avi", ".mov", ".wmv", ".flv", ".wav", ".flac", ".ogg",
	// binary documents
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	// databases
	".db", ".sqlite", ".sqlite3",
	// bytecode and serialized blobs
	".pyc", ".pyo", ".class", ".pickle", ".pkl",
)

func newExtSet(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// magicPrefixes are file signatures that identify binary content regardless
// of extension.
var magicPrefixes = [][]byte{
	{0x1F, 0x8B},             // gzip
	{0x50, 0x4B, 0x03, 0x04}, // zip
	{0x50, 0x4B, 0x05, 0x06}, // empty zip
	{0x89, 0x50, 0x4E, 0x47}, // png
	{0xFF, 0xD8, 0xFF},       // jpeg
	{0x47, 0x49, 0x46, 0x38}, // gif
	{0x25, 0x50, 0x44, 0x46}, // pdf
	{0x7F, 0x45, 0x4C, 0x46}, // elf
	{0x4D, 0x5A},             // pe/dos
	{0xCA, 0xFE, 0xBA, 0xBE}, // mach-o fat
	{0x77, 0x4F, 0x46, 0x46}, // woff
	{0x77, 0x4F, 0x46, 0x32}, // woff2
}

// BinaryDetector rejects non-text files before the tokenizer or tree-sitter
// ever sees their bytes: by extension first, then by signature or
// control-byte density over the head of the content.
type BinaryDetector struct{}

// NewBinaryDetector returns a detector over the package-level tables.
func NewBinaryDetector() *BinaryDetector {
	return &BinaryDetector{}
}

// IsBinaryByExtension reports whether path's extension is known-binary.
func (bd *BinaryDetector) IsBinaryByExtension(path string) bool {
	_, binary := binaryExtensions[strings.ToLower(filepath.Ext(path))]
	return binary
}

// IsBinaryByMagicNumber inspects up to the first 512 bytes: a known file
// signature, or a null-byte/control-byte density no text file reaches.
func (bd *BinaryDetector) IsBinaryByMagicNumber(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	sample := content
	if len(sample) > 512 {
		sample = sample[:512]
	}

	for _, magic := range magicPrefixes {
		if bytes.HasPrefix(sample, magic) {
			return true
		}
	}

	nulls, control := 0, 0
	for _, b := range sample {
		if b == 0 {
			nulls++
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}
	return nulls > len(sample)/100 || control > len(sample)*30/100
}

// IsBinary combines both checks.
func (bd *BinaryDetector) IsBinary(path string, content []byte) bool {
	return bd.IsBinaryByExtension(path) || bd.IsBinaryByMagicNumber(content)
}
