package defindex

import (
	"strings"

	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/types"
)

// AddFile wires one file's parser.Result into the index: appends its
// definitions, updates every secondary index, records call sites and code
// stats keyed by the new global DefID, and folds extension-method
// contributions into the global map. Callers must hold the write lock.
//
// localToGlobal maps the parser's local def index (0-based within this file)
// to the def's final position in idx.Definitions, which callers need to
// translate MethodCalls/CodeStats keys from parser.Result.
func (idx *Index) AddFile(fileID types.FileID, path string, res *parser.Result) (localToGlobal map[int]int) {
	localToGlobal = make(map[int]int, len(res.Defs))

	if len(res.Defs) == 0 {
		return localToGlobal
	}

	for local, def := range res.Defs {
		def.FileID = fileID
		global := len(idx.Definitions)
		idx.Definitions = append(idx.Definitions, def)
		localToGlobal[local] = global

		idx.NameIndex[strings.ToLower(def.Name)] = addUnique(idx.NameIndex[strings.ToLower(def.Name)], global)
		idx.KindIndex[def.Kind] = addUnique(idx.KindIndex[def.Kind], global)
		for _, a := range def.Attributes {
			key := strings.ToLower(a)
			idx.AttributeIndex[key] = addUnique(idx.AttributeIndex[key], global)
		}
		for _, b := range def.BaseTypes {
			key := normalizeBaseType(b)
			idx.BaseTypeIndex[key] = addUnique(idx.BaseTypeIndex[key], global)
		}
		idx.FileIndex[fileID] = addUnique(idx.FileIndex[fileID], global)
	}

	idx.PathToID[path] = fileID

	for local, calls := range res.CallSites {
		if global, ok := localToGlobal[local]; ok {
			idx.MethodCalls[global] = calls
		}
	}
	for local, stats := range res.CodeStats {
		if global, ok := localToGlobal[local]; ok {
			idx.CodeStats[global] = stats
		}
	}
	for _, contrib := range res.ExtensionContribs {
		key := strings.ToLower(contrib.MethodName)
		set := idx.ExtensionMethods[key]
		if set == nil {
			set = make(map[string]struct{})
			idx.ExtensionMethods[key] = set
		}
		set[contrib.ClassName] = struct{}{}
	}

	return localToGlobal
}

// RemoveFile drops every secondary-index reference for fileID, per §4.9's
// incremental-update contract: "drop references from every secondary index
// and from method_calls; the definitions[] entries remain as tombstones so
// indices stay stable." It does not remove extension-method contributions
// (the map only tracks class/method name pairs, not per-file provenance, so
// a stale contribution from a deleted file is pruned on the next full
// rebuild rather than tracked incrementally — see DESIGN.md).
func (idx *Index) RemoveFile(fileID types.FileID) {
	defIdxs, ok := idx.FileIndex[fileID]
	if !ok {
		return
	}
	for _, global := range defIdxs {
		if global < 0 || global >= len(idx.Definitions) {
			continue
		}
		def := idx.Definitions[global]
		idx.Definitions[global].Tombstone = true

		lname := strings.ToLower(def.Name)
		idx.NameIndex[lname] = removeFromSlice(idx.NameIndex[lname], global)
		idx.KindIndex[def.Kind] = removeFromSlice(idx.KindIndex[def.Kind], global)
		for _, a := range def.Attributes {
			key := strings.ToLower(a)
			idx.AttributeIndex[key] = removeFromSlice(idx.AttributeIndex[key], global)
		}
		for _, b := range def.BaseTypes {
			key := normalizeBaseType(b)
			idx.BaseTypeIndex[key] = removeFromSlice(idx.BaseTypeIndex[key], global)
		}
		delete(idx.MethodCalls, global)
		delete(idx.CodeStats, global)
	}
	delete(idx.FileIndex, fileID)
	for path, fid := range idx.PathToID {
		if fid == fileID {
			delete(idx.PathToID, path)
		}
	}
}

// RecordEmptyFile notes a file that parsed cleanly but yielded zero
// definitions, for the audit report's suspicious-file detail (§4.5).
func (idx *Index) RecordEmptyFile(fileID types.FileID, byteSize int64) {
	idx.EmptyFileIDs = append(idx.EmptyFileIDs, EmptyFile{FileID: fileID, ByteSize: byteSize})
}

// RecordParseError increments the parse-error counter (§7 "counted in the
// definition index; the file simply yields no definitions").
func (idx *Index) RecordParseError() {
	idx.ParseErrors++
}

// RecordLossyFile increments the lossy-decode counter (§4.2).
func (idx *Index) RecordLossyFile() {
	idx.LossyFileCount++
}
