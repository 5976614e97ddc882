package extract

import (
	"bufio"
	"bytes"
	"os"
	"unicode/utf8"
)

// textExtensions are recognized as plain text/code by extension alone.
var textExtensions = map[string]bool{
	// documents
	"txt": true, "md": true, "markdown": true, "rst": true, "org": true,
	"tex": true, "rtf": true,
	// programming languages
	"py": true, "rs": true, "js": true, "ts": true, "jsx": true, "tsx": true,
	"cpp": true, "c": true, "h": true, "hpp": true, "cc": true, "cxx": true,
	"go": true, "java": true, "kt": true, "kts": true, "scala": true,
	"rb": true, "php": true, "swift": true, "m": true, "mm": true,
	"cs": true, "fs": true, "vb": true, "r": true, "lua": true, "pl": true,
	"pm": true, "tcl": true, "zig": true, "nim": true, "d": true,
	"hs": true, "ml": true, "mli": true, "ex": true, "exs": true,
	"erl": true, "hrl": true, "clj": true, "cljs": true, "lisp": true, "el": true,
	"v": true, "sv": true, "vhd": true, "vhdl": true, "asm": true, "s": true,
	// shell/scripts
	"sh": true, "bash": true, "zsh": true, "fish": true,
	"ps1": true, "psm1": true, "bat": true, "cmd": true,
	// config/data
	"json": true, "yaml": true, "yml": true, "toml": true, "xml": true,
	"ini": true, "cfg": true, "conf": true, "config": true,
	"env": true, "properties": true, "plist": true,
	// web
	"css": true, "scss": true, "sass": true, "less": true, "svg": true,
	// database/query
	"sql": true, "graphql": true, "gql": true,
	// build/CI
	"cmake": true, "make": true, "gradle": true, "sbt": true, "cabal": true,
	// other
	"csv": true, "tsv": true, "log": true, "diff": true, "patch": true,
}

// textFilenames are extensionless (or dotfile) names recognized as text.
var textFilenames = map[string]bool{
	"Makefile": true, "makefile": true, "GNUmakefile": true,
	"Dockerfile": true, "dockerfile": true, "Containerfile": true,
	"Vagrantfile": true, "Gemfile": true, "Rakefile": true,
	"LICENSE": true, "LICENCE": true, "COPYING": true,
	"README": true, "CHANGELOG": true, "HISTORY": true,
	"AUTHORS": true, "CONTRIBUTORS": true,
	"TODO": true, "NOTES": true, "INSTALL": true, "NEWS": true,
	".gitignore": true, ".gitattributes": true, ".gitmodules": true,
	".dockerignore": true, ".editorconfig": true, ".env": true,
	".bashrc": true, ".zshrc": true, ".profile": true, ".bash_profile": true,
	"requirements.txt": true, "Pipfile": true, "Cargo.toml": true,
	"go.mod": true, "package.json": true,
}

// isUTF8SniffBytes is the byte budget for extensionless-file sniffing.
const isUTF8SniffBytes = 4096

// IsExtensionlessTextFile reports whether an extensionless path (a
// Makefile, Dockerfile, README, dotfile, etc.) belongs to the text family:
// either by a known no-extension filename, or by sniffing the first 4 KiB
// for the absence of NUL bytes and valid UTF-8. Discovery calls this before
// ExtractText ever sees the path, since an unrecognized binary file with no
// extension should be skipped rather than surfaced as a failed extraction.
func IsExtensionlessTextFile(path string) bool {
	name := baseName(path)
	if textFilenames[name] {
		return true
	}
	return isValidUTF8File(path, isUTF8SniffBytes)
}

// isTextFile decides whether path should be read as plain text: by
// extension, by a known no-extension filename, or (for files with no
// extension at all) by sniffing the first 4 KiB for the absence of NUL
// bytes and valid UTF-8.
func isTextFile(path string) bool {
	ext := extOf(path)
	if ext != "" && textExtensions[ext] {
		return true
	}

	name := baseName(path)
	if textFilenames[name] {
		return true
	}

	if ext == "" {
		return isValidUTF8File(path, isUTF8SniffBytes)
	}
	return false
}

// isValidUTF8File reads up to maxBytes from path and reports whether the
// sample contains no NUL byte and parses as valid UTF-8 — the same test
// used to decide whether an extensionless file is text, not binary.
func isValidUTF8File(path string, maxBytes int) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	r := bufio.NewReader(f)
	buf := make([]byte, maxBytes)
	n, _ := r.Read(buf)
	buf = buf[:n]

	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}
	return utf8.Valid(buf)
}

func baseName(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' && path[i] != '\\' {
		i--
	}
	return path[i+1:]
}
