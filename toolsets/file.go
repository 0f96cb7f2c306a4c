package toolsets

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tersePrompts/fastMCP4J-sub002/fastmcp"
)

const (
	maxFileReadLines = 100000
	maxFileWriteSize = 10 << 20
	maxGrepMatches   = 200
)

// FileStats summarizes one file without reading it into the result.
type FileStats struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Lines     int    `json:"lines"`
	Binary    bool   `json:"binary"`
	Modified  string `json:"modified"`
}

// FileSet contributes sandboxed file tools: read with line ranges, regex
// search, stats, write/append, delete and mkdir. Every path is resolved
// against the configured root and containment-checked, so handlers cannot
// escape it through relative segments or symlinks.
type FileSet struct {
	root     string
	readOnly bool
}

// FileOption configures a FileSet.
type FileOption func(*FileSet)

// FileReadOnly drops the write, delete and mkdir tools.
func FileReadOnly() FileOption {
	return func(f *FileSet) { f.readOnly = true }
}

// NewFileSet builds a file toolset rooted at root. The directory must exist.
func NewFileSet(root string, opts ...FileOption) (*FileSet, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("file toolset: resolve root %q: %w", root, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("file toolset: resolve root %q: %w", root, err)
	}
	f := &FileSet{root: real}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FileSet) Name() string { return "file" }

func (f *FileSet) Tools() []fastmcp.ToolDef {
	defs := []fastmcp.ToolDef{
		{
			Name: "file_read",
			Fn:   f.read,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Read a file, optionally a line range, with line numbers. Use file_stats first for large files."),
				fastmcp.WithParams(
					fastmcp.Param("path",
						fastmcp.ParamDescription("File path relative to the sandbox root"),
						fastmcp.ParamExamples("src/main.go", "README.md"),
					),
					fastmcp.Param("start_line",
						fastmcp.ParamDescription("First line to read, 1-indexed. 0 reads from the start."),
						fastmcp.ParamDefault(0),
					),
					fastmcp.Param("end_line",
						fastmcp.ParamDescription("Last line to read, inclusive. 0 reads to the end."),
						fastmcp.ParamDefault(0),
					),
				),
			},
		},
		{
			Name: "file_grep",
			Fn:   f.grep,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Search files under a path for a regex pattern"),
				fastmcp.WithParams(
					fastmcp.Param("path",
						fastmcp.ParamDescription("File or directory to search, relative to the sandbox root"),
					),
					fastmcp.Param("pattern",
						fastmcp.ParamDescription("Go regular expression to search for"),
						fastmcp.ParamExamples(`func \w+`, "TODO"),
					),
					fastmcp.Param("case_insensitive",
						fastmcp.ParamDescription("Match case-insensitively"),
						fastmcp.ParamDefault(false),
					),
					fastmcp.Param("max_matches",
						fastmcp.ParamDescription("Stop after this many matches"),
						fastmcp.ParamDefault(maxGrepMatches),
					),
				),
			},
		},
		{
			Name: "file_stats",
			Fn:   f.stats,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Report a file's size, line count and type before reading it"),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("File path relative to the sandbox root")),
				),
			},
		},
	}
	if f.readOnly {
		return defs
	}
	return append(defs,
		fastmcp.ToolDef{
			Name: "file_write",
			Fn:   f.write,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Write or append content to a file, creating parent directories as needed"),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("File path relative to the sandbox root")),
					fastmcp.Param("content", fastmcp.ParamDescription("Content to write")),
					fastmcp.Param("append",
						fastmcp.ParamDescription("Append instead of overwrite"),
						fastmcp.ParamDefault(false),
					),
				),
			},
		},
		fastmcp.ToolDef{
			Name: "file_delete",
			Fn:   f.delete,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Delete a file"),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("File path relative to the sandbox root")),
				),
			},
		},
		fastmcp.ToolDef{
			Name: "file_mkdir",
			Fn:   f.mkdir,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Create a directory, including parents"),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("Directory path relative to the sandbox root")),
				),
			},
		},
	)
}

func (f *FileSet) read(path string, startLine, endLine int) (string, error) {
	abs, err := f.resolve(path, true)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is a binary file; use file_stats instead", path)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > maxFileReadLines {
		return "", fmt.Errorf("%s has %d lines, over the %d line limit; use a line range", path, len(lines), maxFileReadLines)
	}
	start, end := 1, len(lines)
	if startLine > 0 {
		start = startLine
	}
	if endLine > 0 && endLine < end {
		end = endLine
	}
	if start > len(lines) {
		return "", fmt.Errorf("start_line %d past end of %s (%d lines)", start, path, len(lines))
	}
	var sb strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&sb, "%6d\t%s\n", i, lines[i-1])
	}
	return sb.String(), nil
}

func (f *FileSet) grep(path, pattern string, caseInsensitive bool, maxMatches int) (string, error) {
	abs, err := f.resolve(path, true)
	if err != nil {
		return "", err
	}
	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}
	if maxMatches <= 0 || maxMatches > maxGrepMatches {
		maxMatches = maxGrepMatches
	}

	var sb strings.Builder
	matches := 0
	walk := func(file string) error {
		rel, rerr := filepath.Rel(f.root, file)
		if rerr != nil {
			rel = file
		}
		fh, oerr := os.Open(file)
		if oerr != nil {
			return nil // skip unreadable files
		}
		defer fh.Close()
		scanner := bufio.NewScanner(fh)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() && matches < maxMatches {
			lineNo++
			line := scanner.Text()
			if !utf8.ValidString(line) {
				return nil // binary file, stop scanning it
			}
			if re.MatchString(line) {
				matches++
				fmt.Fprintf(&sb, "%s:%d: %s\n", filepath.ToSlash(rel), lineNo, line)
			}
		}
		return nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, werr error) error {
			if werr != nil || d.IsDir() || matches >= maxMatches {
				return nil
			}
			return walk(p)
		})
		if err != nil {
			return "", err
		}
	} else if err := walk(abs); err != nil {
		return "", err
	}

	if matches == 0 {
		return fmt.Sprintf("No matches for %q in %s", pattern, path), nil
	}
	fmt.Fprintf(&sb, "%d match(es)", matches)
	return sb.String(), nil
}

func (f *FileSet) stats(path string) (FileStats, error) {
	abs, err := f.resolve(path, true)
	if err != nil {
		return FileStats{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileStats{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FileStats{}, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return FileStats{}, fmt.Errorf("read %s: %w", path, err)
	}
	st := FileStats{
		Path:      path,
		SizeBytes: info.Size(),
		Binary:    !utf8.Valid(data),
		Modified:  info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
	}
	if !st.Binary {
		st.Lines = strings.Count(string(data), "\n")
		if len(data) > 0 && data[len(data)-1] != '\n' {
			st.Lines++
		}
	}
	return st, nil
}

func (f *FileSet) write(path, content string, appendMode bool) (string, error) {
	if len(content) > maxFileWriteSize {
		return "", fmt.Errorf("content is %d bytes, over the %d byte limit", len(content), maxFileWriteSize)
	}
	abs, err := f.resolve(path, false)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create parent directories for %s: %w", path, err)
	}
	flags := os.O_CREATE | os.O_WRONLY
	verb := "Wrote"
	if appendMode {
		flags |= os.O_APPEND
		verb = "Appended"
	} else {
		flags |= os.O_TRUNC
	}
	fh, err := os.OpenFile(abs, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	if _, err := fh.WriteString(content); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return fmt.Sprintf("%s %d bytes to %s", verb, len(content), path), nil
}

func (f *FileSet) delete(path string) (string, error) {
	abs, err := f.resolve(path, true)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory; only files can be deleted", path)
	}
	if err := os.Remove(abs); err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	return fmt.Sprintf("Deleted %s", path), nil
}

func (f *FileSet) mkdir(path string) (string, error) {
	abs, err := f.resolve(path, false)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", path, err)
	}
	return fmt.Sprintf("Created directory %s", path), nil
}

// resolve joins path onto the sandbox root and rejects anything resolving
// outside it. When mustExist is set, symlinks are evaluated so a link inside
// the tree cannot point out of it.
func (f *FileSet) resolve(path string, mustExist bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	abs := filepath.Join(f.root, filepath.FromSlash(path))
	if !contained(abs, f.root) {
		return "", fmt.Errorf("path escapes the sandbox: %s", path)
	}
	if mustExist {
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", fmt.Errorf("not found: %s", path)
		}
		if !contained(real, f.root) {
			return "", fmt.Errorf("path escapes the sandbox: %s", path)
		}
		return real, nil
	}
	return abs, nil
}

func contained(target, root string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}
