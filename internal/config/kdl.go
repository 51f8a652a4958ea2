package config

import (
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// applyKDL overlays a parsed .lci.kdl document onto cfg. Only the knobs a
// component actually reads are recognized; unknown nodes are ignored so old
// config files keep loading after a field is retired.
//
// Document shape:
//
//	project { root "."; name "api" }
//	index { max_file_size "10MB"; respect_gitignore true; watch_debounce_ms 300 }
//	performance { workers 8 }
//	semantic { min_stem_length 4 }
//	search { max_results 50; stem true; ranking { enabled true; code_file_boost 50.0 } }
//	persist { dir ".lci/index"; max_age_secs 86400 }
//	include "**/*.cs" "**/*.ts"
//	exclude "**/generated/**"
func applyKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return err
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			eachChild(n, func(name string, cn *document.Node) {
				switch name {
				case "root":
					setString(cn, &cfg.Project.Root)
				case "name":
					setString(cn, &cfg.Project.Name)
				}
			})
		case "index":
			applyIndexNode(cfg, n)
		case "performance":
			eachChild(n, func(name string, cn *document.Node) {
				if name == "workers" {
					setInt(cn, &cfg.Performance.ParallelFileWorkers)
				}
			})
		case "semantic":
			eachChild(n, func(name string, cn *document.Node) {
				if name == "min_stem_length" {
					setInt(cn, &cfg.Semantic.MinStemLength)
				}
			})
		case "search":
			applySearchNode(cfg, n)
		case "persist":
			eachChild(n, func(name string, cn *document.Node) {
				switch name {
				case "dir":
					setString(cn, &cfg.Persist.BaseDir)
				case "max_age_secs":
					setInt64(cn, &cfg.Persist.MaxAgeSecs)
				}
			})
		case "include":
			cfg.Include = append(cfg.Include, stringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, stringArgs(n)...)
		}
	}
	return nil
}

func applyIndexNode(cfg *Config, n *document.Node) {
	eachChild(n, func(name string, cn *document.Node) {
		switch name {
		case "max_file_size":
			// Accepts a byte count or a human size string ("10MB").
			if v, ok := intArg(cn); ok {
				cfg.Index.MaxFileSize = int64(v)
			} else if s, ok := stringArg(cn); ok {
				if sz, err := parseSize(s); err == nil {
					cfg.Index.MaxFileSize = sz
				}
			}
		case "max_total_size_mb":
			setInt64(cn, &cfg.Index.MaxTotalSizeMB)
		case "max_file_count":
			setInt(cn, &cfg.Index.MaxFileCount)
		case "follow_symlinks":
			setBool(cn, &cfg.Index.FollowSymlinks)
		case "respect_gitignore":
			setBool(cn, &cfg.Index.RespectGitignore)
		case "watch_mode":
			setBool(cn, &cfg.Index.WatchMode)
		case "watch_debounce_ms":
			setInt(cn, &cfg.Index.WatchDebounceMs)
		case "bulk_threshold":
			setInt(cn, &cfg.Index.BulkThreshold)
		}
	})
}

func applySearchNode(cfg *Config, n *document.Node) {
	eachChild(n, func(name string, cn *document.Node) {
		switch name {
		case "max_results":
			setInt(cn, &cfg.Search.MaxResults)
		case "stem":
			setBool(cn, &cfg.Search.Stem)
		case "ranking":
			eachChild(cn, func(rname string, rn *document.Node) {
				switch rname {
				case "enabled":
					setBool(rn, &cfg.Search.Ranking.Enabled)
				case "code_file_boost":
					setFloat(rn, &cfg.Search.Ranking.CodeFileBoost)
				case "doc_file_penalty":
					setFloat(rn, &cfg.Search.Ranking.DocFilePenalty)
				case "config_file_boost":
					setFloat(rn, &cfg.Search.Ranking.ConfigFileBoost)
				case "require_symbol":
					setBool(rn, &cfg.Search.Ranking.RequireSymbol)
				case "non_symbol_penalty":
					setFloat(rn, &cfg.Search.Ranking.NonSymbolPenalty)
				case "extension_weight":
					// extension_weight ".cs" 75.0
					if len(rn.Arguments) >= 2 {
						ext, eok := rn.Arguments[0].Value.(string)
						w, wok := floatValue(rn.Arguments[1].Value)
						if eok && wok {
							if cfg.Search.Ranking.ExtensionWeights == nil {
								cfg.Search.Ranking.ExtensionWeights = make(map[string]float64)
							}
							cfg.Search.Ranking.ExtensionWeights[strings.TrimPrefix(ext, ".")] = w
						}
					}
				}
			})
		}
	})
}

// --- kdl-go document helpers ---

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func eachChild(n *document.Node, fn func(name string, cn *document.Node)) {
	for _, cn := range n.Children {
		fn(nodeName(cn), cn)
	}
}

func stringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func intArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func floatValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func setString(n *document.Node, dst *string) {
	if s, ok := stringArg(n); ok {
		*dst = s
	}
}

func setInt(n *document.Node, dst *int) {
	if v, ok := intArg(n); ok {
		*dst = v
	}
}

func setInt64(n *document.Node, dst *int64) {
	if v, ok := intArg(n); ok {
		*dst = int64(v)
	}
}

func setBool(n *document.Node, dst *bool) {
	if len(n.Arguments) == 0 {
		return
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		*dst = b
	}
}

func setFloat(n *document.Node, dst *float64) {
	if len(n.Arguments) == 0 {
		return
	}
	if v, ok := floatValue(n.Arguments[0].Value); ok {
		*dst = v
	}
}

// stringArgs collects a node's string arguments, falling back to child nodes
// for the block form:
//
//	exclude "**/a/**" "**/b/**"
//	exclude { "**/a/**"; "**/b/**" }
func stringArgs(n *document.Node) []string {
	var out []string
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, cn := range n.Children {
		if s, ok := stringArg(cn); ok {
			out = append(out, s)
			continue
		}
		if cn.Name != nil {
			if s, ok := cn.Name.Value.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// parseSize reads "10MB" / "500KB" / "1GB" / plain byte counts.
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		mult, s = 1<<30, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		mult, s = 1<<20, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		mult, s = 1<<10, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
