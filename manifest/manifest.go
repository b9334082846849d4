/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package manifest enumerates bundled asset files once at startup and
// derives stable identifiers for them, so registries never scan
// directories while serving.
package manifest

import (
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/spf13/afero"
)

// Entry is one asset known to a registry.
type Entry struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	File   string `json:"file"`
	URL    string `json:"url"`
	Format string `json:"format"`
}

var (
	extension = regexp.MustCompile(`(?i)\.[a-z0-9]+$`)
	nonAlnum  = regexp.MustCompile(`(?i)[^a-z0-9]+`)
)

// Slug lower-cases name, drops a trailing file extension and collapses
// every run of other characters into a single dash.
func Slug(name string) string {
	s := strings.ToLower(name)
	s = extension.ReplaceAllString(s, "")
	s = nonAlnum.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// Hash36 is the 32-bit FNV-1a hash of s's UTF-16 code units in base 36.
// Slugs of non-Latin names are often empty, so it stands in for them.
func Hash36(s string) string {
	h := uint32(2166136261)

	for _, u := range utf16.Encode([]rune(s)) {
		h ^= uint32(u)
		h *= 16777619
	}

	return strconv.FormatUint(uint64(h), 36)
}

// BaseName returns the file name of p without its extension.
func BaseName(p string) string {
	base := path.Base(filepath.ToSlash(p))

	return strings.TrimSuffix(base, path.Ext(base))
}

// Scan lists every file under root whose extension is one of exts,
// compared case-insensitively, in lexical order. A missing root yields
// no files.
func Scan(fsys afero.Fs, root string, exts ...string) ([]string, error) {
	if fsys == nil {
		return nil, nil
	}

	exists, err := afero.DirExists(fsys, root)
	if err != nil || !exists {
		return nil, err
	}

	var files []string

	err = afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if slices.Contains(exts, strings.ToLower(path.Ext(filepath.ToSlash(p)))) {
			files = append(files, filepath.ToSlash(p))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}
