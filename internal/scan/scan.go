// Package scan classifies the immediate children of a directory into
// namespace and unit entries.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/autoinit/api"
)

// EntryKind distinguishes directories from source files.
type EntryKind int

const (
	// Namespace is a subdirectory, composed into a nested module.
	Namespace EntryKind = iota
	// Unit is a source file with a recognized suffix.
	Unit
)

func (k EntryKind) String() string {
	if k == Namespace {
		return "namespace"
	}
	return "unit"
}

// Entry is one classified child of a scanned directory.
type Entry struct {
	Kind EntryKind
	// Name is the directory name, or the file name without its suffix.
	Name string
	Path string
	// Suffix is the recognized suffix of a unit; empty for namespaces.
	Suffix string
}

// EntryList holds namespaces before units, each group sorted by Name.
type EntryList []Entry

// Scanner lists directories on a billy filesystem.
type Scanner struct {
	FS billy.Filesystem
	// Suffixes are the recognized source-file suffixes, including the dot.
	Suffixes []string
	// MetaFile overrides api.MetaFileName when set.
	MetaFile string
}

// New returns a scanner recognizing the given suffixes.
func New(fsys billy.Filesystem, suffixes ...string) *Scanner {
	return &Scanner{FS: fsys, Suffixes: suffixes}
}

// Scan loads the directory's metadata, if any, and classifies its children.
// The metadata is nil when the directory has no metadata file.
// Any filesystem error aborts the scan; partial results are discarded.
func (s *Scanner) Scan(dir string) (*api.Metadata, EntryList, error) {
	meta, err := s.loadMetadata(dir)
	if err != nil {
		return nil, nil, err
	}

	infos, err := s.FS.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var dirs, units EntryList
	for _, info := range infos {
		name := info.Name()
		p := s.FS.Join(dir, name)

		// ReadDir does not follow symlinks; Stat does.
		st, err := s.FS.Stat(p)
		if err != nil {
			return nil, nil, err
		}

		switch {
		case st.IsDir():
			dirs = append(dirs, Entry{Kind: Namespace, Name: name, Path: p})
		case st.Mode().IsRegular():
			if name == s.metaName() {
				continue
			}
			suffix, ok := s.match(name)
			if !ok {
				continue
			}
			units = append(units, Entry{
				Kind:   Unit,
				Name:   strings.TrimSuffix(name, suffix),
				Path:   p,
				Suffix: suffix,
			})
		}
	}

	sortEntries(dirs)
	sortEntries(units)
	return meta, append(dirs, units...), nil
}

func (s *Scanner) metaName() string {
	if s.MetaFile == "" {
		return api.MetaFileName
	}
	return s.MetaFile
}

func (s *Scanner) metaPath(dir string) string {
	return s.FS.Join(dir, s.metaName())
}

func (s *Scanner) loadMetadata(dir string) (*api.Metadata, error) {
	p := s.metaPath(dir)
	if _, err := s.FS.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	data, err := util.ReadFile(s.FS, p)
	if err != nil {
		return nil, err
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load metadata %s: %w", p, err)
	}
	return &api.Metadata{Value: parsed}, nil
}

// match returns the longest recognized suffix of name. A file named exactly
// like a suffix (".lua") has no unit name and is skipped.
func (s *Scanner) match(name string) (string, bool) {
	best := ""
	for _, suffix := range s.Suffixes {
		if len(suffix) > len(best) && len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			best = suffix
		}
	}
	return best, best != ""
}

// sortEntries orders by Name, then by base file name so that units sharing a
// name under different suffixes keep a stable order.
func sortEntries(entries EntryList) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return filepath.Base(entries[i].Path) < filepath.Base(entries[j].Path)
	})
}
