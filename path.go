package vpk

import "strings"

// Normalize canonicalizes a lookup path into an (extension, directory,
// file-name) triple: backslashes become slashes, a missing extension or
// directory is reported as the canonical "none" sentinel rather than an
// empty string, and the directory has its leading/trailing slashes
// trimmed. Both Find and Add route through this function.
func Normalize(p string) (ext, dir, fileName string) {
	p = strings.ReplaceAll(p, "\\", "/")

	i := strings.LastIndexByte(p, '/')
	var name string
	if i < 0 {
		dir, name = "", p
	} else {
		dir, name = p[:i], p[i+1:]
	}
	dir = strings.Trim(dir, "/")
	if dir == "" {
		dir = none
	}

	j := strings.LastIndexByte(name, '.')
	if j < 0 {
		fileName, ext = name, none
	} else {
		fileName, ext = name[:j], name[j+1:]
	}
	return ext, dir, fileName
}

// FullPath reconstructs the logical path for the given (extension,
// directory, file-name) triple, the inverse of Normalize for the canonical
// form (not necessarily byte-identical to whatever path a caller passed
// in, since separators and extra slashes are not preserved).
func FullPath(ext, dir, fileName string) string {
	var b strings.Builder
	if dir != none {
		b.WriteString(dir)
		b.WriteByte('/')
	}
	b.WriteString(fileName)
	if ext != none {
		b.WriteByte('.')
		b.WriteString(ext)
	}
	return b.String()
}
