package content

import "strings"

// FileTypeRanking is grep's optional file-type score adjustment, mirroring
// internal/config's SearchRanking as plain data so content never depends on
// the config package. Zero value (Enabled=false) leaves scores untouched.
type FileTypeRanking struct {
	Enabled bool

	CodeFileBoost   float64
	DocFilePenalty  float64
	ConfigFileBoost float64

	// RequireSymbol and NonSymbolPenalty are applied by the query façade
	// (internal/query), which is the only layer that can tell a hit's file
	// apart from its definition-index symbols.
	RequireSymbol    bool
	NonSymbolPenalty float64

	ExtensionWeights map[string]float64
}

var codeExtensions = map[string]struct{}{
	"go": {}, "cs": {}, "ts": {}, "tsx": {}, "js": {}, "jsx": {}, "mjs": {},
	"py": {}, "java": {}, "kt": {}, "rb": {}, "rs": {}, "c": {}, "h": {},
	"cpp": {}, "hpp": {}, "cc": {}, "php": {}, "swift": {}, "m": {},
}

var docExtensions = map[string]struct{}{
	"md": {}, "txt": {}, "rst": {}, "adoc": {},
}

var configExtensions = map[string]struct{}{
	"yaml": {}, "yml": {}, "json": {}, "toml": {}, "ini": {}, "kdl": {}, "xml": {},
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(path[i+1:])
}

// fileTypeAdjustment returns the score delta §4.4's opt-in file-type ranking
// applies to a hit in path. An exact ExtensionWeights entry wins over the
// three broad categories.
func fileTypeAdjustment(path string, r FileTypeRanking) float64 {
	if !r.Enabled {
		return 0
	}
	ext := extOf(path)
	if w, ok := r.ExtensionWeights[ext]; ok {
		return w
	}
	if _, ok := codeExtensions[ext]; ok {
		return r.CodeFileBoost
	}
	if _, ok := docExtensions[ext]; ok {
		return r.DocFilePenalty
	}
	if _, ok := configExtensions[ext]; ok {
		return r.ConfigFileBoost
	}
	return 0
}
