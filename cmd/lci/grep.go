package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/config"
	"github.com/codesift/codesift/internal/content"
)

// grepFlags are shared by "grep", "find" and "fast" (§4.4's request shape).
func grepFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "regex", Usage: "Treat each term as a regex matched against index keys"},
		&cli.BoolFlag{Name: "and", Usage: "Require every term to match (default: OR)"},
		&cli.BoolFlag{Name: "phrase", Usage: "Treat the single term as a literal phrase"},
		&cli.StringSliceFlag{Name: "ext", Usage: "Limit to file extensions (repeatable)"},
		&cli.StringSliceFlag{Name: "exclude-dir", Usage: "Exclude paths containing this substring (repeatable)"},
		&cli.StringSliceFlag{Name: "exclude-file", Usage: "Exclude paths containing this substring (repeatable)"},
		&cli.IntFlag{Name: "context", Usage: "Context lines around each match"},
		&cli.IntFlag{Name: "max-results", Usage: "Maximum number of file results (default from config)"},
		&cli.BoolFlag{Name: "stem", Usage: "Expand terms to every token sharing their porter2 stem"},
		&cli.BoolFlag{Name: "json", Usage: "Emit results as JSON"},
	}
}

// rankingFromConfig adapts config.SearchRanking to content.FileTypeRanking.
// Kept at the CLI/MCP edge so internal/content never imports internal/config.
func rankingFromConfig(r config.SearchRanking) content.FileTypeRanking {
	return content.FileTypeRanking{
		Enabled:          r.Enabled,
		CodeFileBoost:    r.CodeFileBoost,
		DocFilePenalty:   r.DocFilePenalty,
		ConfigFileBoost:  r.ConfigFileBoost,
		RequireSymbol:    r.RequireSymbol,
		NonSymbolPenalty: r.NonSymbolPenalty,
		ExtensionWeights: r.ExtensionWeights,
	}
}

func grepRequestFromFlags(c *cli.Context, forcePlain bool, cfg *config.Config) content.GrepRequest {
	var terms []string
	for _, a := range c.Args().Slice() {
		terms = append(terms, strings.Split(a, ",")...)
	}
	maxResults := c.Int("max-results")
	if maxResults <= 0 {
		maxResults = cfg.Search.MaxResults
	}
	req := content.GrepRequest{
		Terms:        terms,
		Regex:        c.Bool("regex") && !forcePlain,
		And:          c.Bool("and"),
		Phrase:       c.Bool("phrase") && !forcePlain,
		Extensions:   c.StringSlice("ext"),
		ExcludeDirs:  c.StringSlice("exclude-dir"),
		ExcludeFiles: c.StringSlice("exclude-file"),
		ContextLines: c.Int("context"),
		MaxResults:   maxResults,
		Stem:         c.Bool("stem") || cfg.Search.Stem,
		Ranking:      rankingFromConfig(cfg.Search.Ranking),
	}
	return req
}

func runGrep(c *cli.Context, name string, forcePlain bool) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: lci %s <term>[,<term>...]", name)
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	cidx, didx, err := loadIndexes(cfg, true)
	if err != nil {
		return err
	}
	h := newHandlers(cidx, didx, cfg.Project.Root)

	resp, err := h.Grep(grepRequestFromFlags(c, forcePlain, cfg))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	ctxLines := c.Int("context")
	for _, hit := range resp.Hits {
		fmt.Printf("%s  score=%.4f terms=%d lines=%v\n", hit.Path, hit.Score, hit.TermsMatched, hit.Lines)
		if ctxLines > 0 {
			printContext(hit.Path, hit.Lines, ctxLines)
		}
	}
	if resp.Summary.Truncated {
		fmt.Fprintln(os.Stderr, "(results truncated)")
	}
	return nil
}

// printContext renders each matched line with n lines of surrounding context,
// merging overlapping windows so adjacent matches print once.
func printContext(path string, matched []int, n int) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  (context unavailable: %v)\n", err)
		return
	}
	lines := strings.Split(string(data), "\n")
	want := make(map[int]bool, len(matched))
	isMatch := make(map[int]bool, len(matched))
	for _, m := range matched {
		isMatch[m] = true
		for l := m - n; l <= m+n; l++ {
			if l >= 1 && l <= len(lines) {
				want[l] = true
			}
		}
	}
	prev := 0
	for l := 1; l <= len(lines); l++ {
		if !want[l] {
			continue
		}
		if prev != 0 && l != prev+1 {
			fmt.Println("  --")
		}
		marker := " "
		if isMatch[l] {
			marker = ":"
		}
		fmt.Printf("  %6d%s %s\n", l, marker, lines[l-1])
		prev = l
	}
}

// grepCommand builds the "grep" and "find" subcommands, which per §6's MCP
// surface ("search_find is an alias kept for the CLI's 'find' verb") are the
// same operation under two names.
func grepCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<term>[,<term>...]",
		Flags:     grepFlags(),
		Action:    func(c *cli.Context) error { return runGrep(c, name, false) },
	}
}

// fastCommand is the literal lookup: each term is matched as one exact,
// normalized index token, with regex and phrase mode forced off regardless
// of the flags the user passes.
func fastCommand() *cli.Command {
	return &cli.Command{
		Name:      "fast",
		Usage:     "Literal token search: exact index-token matches, no regex or phrase mode",
		ArgsUsage: "<term>[,<term>...]",
		Flags:     grepFlags(),
		Action:    func(c *cli.Context) error { return runGrep(c, "fast", true) },
	}
}
