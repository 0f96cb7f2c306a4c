package toolsets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newFileSet(t *testing.T, opts ...FileOption) (*FileSet, string) {
	t.Helper()
	root := t.TempDir()
	f, err := NewFileSet(root, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return f, root
}

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileReadWithLineNumbers(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "a.txt", "alpha\nbeta\ngamma\n")

	out, err := f.read("a.txt", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "     1\talpha\n") || !strings.Contains(out, "     3\tgamma\n") {
		t.Errorf("output = %q", out)
	}
}

func TestFileReadLineRange(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "a.txt", "one\ntwo\nthree\nfour\n")

	out, err := f.read("a.txt", 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "one") || strings.Contains(out, "four") {
		t.Errorf("range not honoured: %q", out)
	}
	if !strings.Contains(out, "two") || !strings.Contains(out, "three") {
		t.Errorf("range missing lines: %q", out)
	}

	if _, err := f.read("a.txt", 99, 0); err == nil {
		t.Error("start past end accepted")
	}
}

func TestFileReadRejectsBinary(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "bin", string([]byte{0xff, 0xfe, 0x00, 0x01}))
	if _, err := f.read("bin", 0, 0); err == nil || !strings.Contains(err.Error(), "binary") {
		t.Errorf("err = %v", err)
	}
}

func TestFileGrep(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "src/a.go", "package a\nfunc Hello() {}\n")
	writeFixture(t, root, "src/b.go", "package a\nfunc World() {}\n")

	out, err := f.grep("src", `func \w+`, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "src/a.go:2:") || !strings.Contains(out, "src/b.go:2:") {
		t.Errorf("grep output = %q", out)
	}
	if !strings.Contains(out, "2 match(es)") {
		t.Errorf("match count missing: %q", out)
	}
}

func TestFileGrepCaseInsensitive(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "a.txt", "HELLO world\n")

	out, err := f.grep("a.txt", "hello", true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "HELLO world") {
		t.Errorf("grep output = %q", out)
	}

	out, err = f.grep("a.txt", "hello", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "No matches") {
		t.Errorf("case-sensitive grep matched: %q", out)
	}
}

func TestFileGrepInvalidPattern(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "a.txt", "x\n")
	if _, err := f.grep("a.txt", "[unclosed", false, 0); err == nil {
		t.Error("invalid pattern accepted")
	}
}

func TestFileStats(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "a.txt", "one\ntwo\nthree")

	st, err := f.stats("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if st.Lines != 3 {
		t.Errorf("lines = %d, want 3", st.Lines)
	}
	if st.Binary {
		t.Error("text file reported binary")
	}
	if st.SizeBytes != int64(len("one\ntwo\nthree")) {
		t.Errorf("size = %d", st.SizeBytes)
	}
}

func TestFileWriteAndAppend(t *testing.T) {
	f, root := newFileSet(t)

	if _, err := f.write("sub/dir/new.txt", "hello", false); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, "sub", "dir", "new.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if _, err := f.write("sub/dir/new.txt", " world", true); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(filepath.Join(root, "sub", "dir", "new.txt"))
	if string(data) != "hello world" {
		t.Errorf("appended content = %q", data)
	}

	if _, err := f.write("sub/dir/new.txt", "reset", false); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(filepath.Join(root, "sub", "dir", "new.txt"))
	if string(data) != "reset" {
		t.Errorf("truncated content = %q", data)
	}
}

func TestFileDelete(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "gone.txt", "x")
	if _, err := f.delete("gone.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "gone.txt")); !os.IsNotExist(err) {
		t.Errorf("file still exists: %v", err)
	}
	if _, err := f.delete("."); err == nil {
		t.Error("directory delete accepted")
	}
}

func TestFileSandboxEscapeRejected(t *testing.T) {
	f, root := newFileSet(t)
	writeFixture(t, root, "a.txt", "x")

	for _, path := range []string{"../escape.txt", "sub/../../escape.txt"} {
		if _, err := f.read(path, 0, 0); err == nil || !strings.Contains(err.Error(), "escapes the sandbox") {
			t.Errorf("read(%q) err = %v", path, err)
		}
		if _, err := f.write(path, "x", false); err == nil || !strings.Contains(err.Error(), "escapes the sandbox") {
			t.Errorf("write(%q) err = %v", path, err)
		}
	}
}

func TestFileSymlinkEscapeRejected(t *testing.T) {
	f, root := newFileSet(t)
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("hidden"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := f.read("link.txt", 0, 0); err == nil || !strings.Contains(err.Error(), "escapes the sandbox") {
		t.Errorf("symlink read err = %v", err)
	}
}

func TestFileReadOnlyDropsMutatingTools(t *testing.T) {
	f, _ := newFileSet(t, FileReadOnly())
	for _, def := range f.Tools() {
		switch def.Name {
		case "file_write", "file_delete", "file_mkdir":
			t.Errorf("read-only set exposes %s", def.Name)
		}
	}
	full, _ := newFileSet(t)
	if len(full.Tools()) != len(f.Tools())+3 {
		t.Errorf("tool counts: full %d, read-only %d", len(full.Tools()), len(f.Tools()))
	}
}
