// Package config loads and merges project configuration for the indexing
// engine: a global ~/.lci.kdl base overlaid by the project's .lci.kdl, plus
// gitignore-derived and build-artifact-derived exclusions. The parsed Config
// is plain data; every field has a consumer in the walker, the build driver,
// the watcher, or the query façades.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/codesift/codesift/internal/types"
)

// Default scoring constants for search ranking, shared between code defaults
// and KDL parsing.
const (
	DefaultCodeFileBoost    = 50.0
	DefaultDocFilePenalty   = -20.0
	DefaultConfigFileBoost  = 10.0
	DefaultNonSymbolPenalty = -30.0
)

// Config is the merged project configuration.
type Config struct {
	Project     Project
	Index       Index
	Performance Performance
	Semantic    Semantic
	Search      Search
	Persist     Persist
	Include     []string
	Exclude     []string
}

// Project identifies the tree being indexed.
type Project struct {
	Root string
	Name string
}

// Index tunes the walker's admission rules and the watcher.
type Index struct {
	MaxFileSize      int64 // per-file byte cap; 0 disables
	MaxTotalSizeMB   int64 // total indexed bytes cap; 0 disables
	MaxFileCount     int   // file-count cap per build; 0 disables
	FollowSymlinks   bool
	RespectGitignore bool
	WatchMode        bool // build forward/path_to_id maps for incremental updates
	WatchDebounceMs  int
	BulkThreshold    int // |dirty|+|removed| above which the watcher rebuilds from disk
}

// Performance tunes build parallelism.
type Performance struct {
	ParallelFileWorkers int // 0 = available parallelism
}

// Semantic holds the stemming knob the build driver copies into the content
// index (minimum token length before porter2 stemming applies).
type Semantic struct {
	MinStemLength int
}

// SearchRanking is grep's optional file-type and symbol scoring preference.
type SearchRanking struct {
	Enabled bool

	CodeFileBoost   float64
	DocFilePenalty  float64
	ConfigFileBoost float64

	RequireSymbol    bool
	NonSymbolPenalty float64

	ExtensionWeights map[string]float64
}

// Validate rejects weight values extreme enough to drown the TF-IDF score.
func (r SearchRanking) Validate() error {
	check := func(name string, v float64) error {
		if v > 1000 || v < -1000 {
			return fmt.Errorf("config: ranking %s must be within [-1000, 1000], got %v", name, v)
		}
		return nil
	}
	if err := check("code_file_boost", r.CodeFileBoost); err != nil {
		return err
	}
	if err := check("doc_file_penalty", r.DocFilePenalty); err != nil {
		return err
	}
	if err := check("config_file_boost", r.ConfigFileBoost); err != nil {
		return err
	}
	if err := check("non_symbol_penalty", r.NonSymbolPenalty); err != nil {
		return err
	}
	for ext, w := range r.ExtensionWeights {
		if err := check("extension weight for "+ext, w); err != nil {
			return err
		}
	}
	return nil
}

// Search tunes grep behavior.
type Search struct {
	MaxResults int           // default cap when the caller passes none
	Stem       bool          // expand grep terms to same-stem tokens
	Ranking    SearchRanking // file-type and symbol score adjustments
}

// Persist controls where index blobs live and how long they stay trusted.
type Persist struct {
	BaseDir    string // defaults to "<root>/.lci/index"
	MaxAgeSecs int64  // 0 disables staleness warnings
}

// Defaults returns the configuration used when no .lci.kdl exists.
func Defaults(root string) *Config {
	return &Config{
		Project: Project{Root: root},
		Index: Index{
			MaxFileSize:      types.DefaultMaxFileSize,
			MaxTotalSizeMB:   types.DefaultMaxTotalSizeMB,
			MaxFileCount:     types.DefaultMaxFileCount,
			RespectGitignore: true,
			WatchDebounceMs:  300,
			BulkThreshold:    500,
		},
		Semantic: Semantic{MinStemLength: 4},
		Search: Search{
			MaxResults: 50,
			Ranking: SearchRanking{
				Enabled:          true,
				CodeFileBoost:    DefaultCodeFileBoost,
				DocFilePenalty:   DefaultDocFilePenalty,
				ConfigFileBoost:  DefaultConfigFileBoost,
				NonSymbolPenalty: DefaultNonSymbolPenalty,
			},
		},
		Persist: Persist{
			BaseDir:    filepath.Join(root, ".lci", "index"),
			MaxAgeSecs: 24 * 60 * 60,
		},
		Exclude: defaultExcludes(),
	}
}

// defaultExcludes lists directory-level patterns no build should descend
// into. Binary files are rejected separately by internal/walk's
// BinaryDetector, so only directory and generated-file patterns live here.
func defaultExcludes() []string {
	return []string{
		"**/node_modules/**",
		"**/vendor/**",
		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/target/**",
		"**/bin/**",
		"**/obj/**",
		"**/__pycache__/**",
		"**/coverage/**",
		"**/.lci/**",
		"**/*.min.js",
		"**/*.min.css",
		"**/*.bundle.js",
		"**/*.g.cs",
		"**/*.Designer.cs",
		"**/*.d.ts",
	}
}

// LoadWithRoot resolves configuration for rootDir: built-in defaults, then
// the global ~/.lci.kdl (if any), then the project config — either the file
// explicitly named by path, or rootDir/.lci.kdl. Later layers override
// earlier ones field-by-field; exclude patterns accumulate across layers.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	root := rootDir
	if root == "" {
		if cwd, err := os.Getwd(); err == nil {
			root = cwd
		} else {
			root = "."
		}
	}

	cfg := Defaults(root)

	if home, err := os.UserHomeDir(); err == nil {
		if err := applyKDLFile(cfg, filepath.Join(home, ".lci.kdl"), root); err != nil {
			return nil, err
		}
	}

	projectPath := filepath.Join(root, ".lci.kdl")
	if path != "" && path != ".lci.kdl" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			projectPath = path
		}
	}
	if err := applyKDLFile(cfg, projectPath, root); err != nil {
		return nil, err
	}

	if !filepath.IsAbs(cfg.Project.Root) {
		if abs, err := filepath.Abs(cfg.Project.Root); err == nil {
			cfg.Project.Root = abs
		}
	}
	if cfg.Persist.BaseDir == "" {
		cfg.Persist.BaseDir = filepath.Join(cfg.Project.Root, ".lci", "index")
	}
	if err := cfg.Search.Ranking.Validate(); err != nil {
		return nil, err
	}

	cfg.Exclude = append(cfg.Exclude, DetectBuildArtifacts(cfg.Project.Root)...)
	return cfg, nil
}

// applyKDLFile overlays the KDL document at path onto cfg. A missing file is
// not an error; a malformed one is.
func applyKDLFile(cfg *Config, path, root string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := applyKDL(cfg, string(data)); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	// A relative root in the file is relative to the directory holding it.
	if cfg.Project.Root != "" && !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(root, cfg.Project.Root))
	}
	return nil
}
