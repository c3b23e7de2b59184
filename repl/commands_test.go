package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	shellserver "github.com/Paranoid-AF/shellserver"
	"github.com/Paranoid-AF/shellserver/daemontest"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd(newApp())
	if root.Use != "shellserver-repl" {
		t.Errorf("expected Use 'shellserver-repl', got %q", root.Use)
	}
	if root.RunE == nil {
		t.Error("root must start the interactive shell")
	}

	for _, name := range []string{"prompt", "p", "pz", "ll", "la", "hist", "theme", "timeout", "options", "buffer", "config", "refs", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestDispatcherRecognizesBuiltins(t *testing.T) {
	d := newDispatcher(newApp())
	for _, name := range []string{"p", "pz", "set-shellserverpathfuzzy", "ll", "hist"} {
		if !isBuiltin(d, name) {
			t.Errorf("%q should be a builtin", name)
		}
	}
	for _, name := range []string{"ls", "cd", "version", "echo"} {
		if isBuiltin(d, name) {
			t.Errorf("%q should run in the shell", name)
		}
	}
}

func TestSplitArgs(t *testing.T) {
	t.Setenv("SHELLSERVER_TEST_DIR", "/srv")

	tests := []struct {
		line     string
		expected []string
	}{
		{"p docs", []string{"p", "docs"}},
		{`p "my docs"`, []string{"p", "my docs"}},
		{"ll -a 'a b' c", []string{"ll", "-a", "a b", "c"}},
		{"ll $SHELLSERVER_TEST_DIR", []string{"ll", "/srv"}},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		if err != nil {
			t.Errorf("splitArgs(%q): %v", tt.line, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("splitArgs(%q) = %q, expected %q", tt.line, got, tt.expected)
		}
	}

	if _, err := splitArgs(`p "unclosed`); err == nil {
		t.Error("expected an error for an unclosed quote")
	}
}

func TestVenvDecoration(t *testing.T) {
	t.Setenv("VIRTUAL_ENV", "")
	if got := venvDecoration(); got != "" {
		t.Errorf("expected no decoration, got %q", got)
	}
	t.Setenv("VIRTUAL_ENV", "/home/me/projects/.venv")
	if got := venvDecoration(); got != "(.venv) " {
		t.Errorf("expected (.venv), got %q", got)
	}
}

func TestSplitPrompt(t *testing.T) {
	tests := []struct {
		prompt, head, last string
	}{
		{"> ", "", "> "},
		{"\n~/src\n❯ ", "\n~/src\n", "❯ "},
		{"line\n", "line\n", ""},
	}
	for _, tt := range tests {
		head, last := splitPrompt(tt.prompt)
		if head != tt.head || last != tt.last {
			t.Errorf("splitPrompt(%q) = %q, %q", tt.prompt, head, last)
		}
	}
}

func TestCrlfWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &crlfWriter{w: &buf}
	n, err := w.Write([]byte("a\nb\n"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("expected the original length, got %d", n)
	}
	if buf.String() != "a\r\nb\r\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteConfig(t *testing.T) {
	entries := []shellserver.ConfigEntry{
		{Name: "timeit", Value: "on"},
		{Name: "git status", Value: `say "hi"`},
		{Name: "a.b", Value: ""},
		{Name: "color", Value: "\x1b[31m\r\n\tC:\\"},
	}
	var buf bytes.Buffer
	if err := writeConfig(&buf, entries); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]string
	if _, err := toml.Decode(buf.String(), &decoded); err != nil {
		t.Fatalf("output is not valid TOML: %v\n%s", err, buf.String())
	}
	expected := map[string]string{}
	for _, e := range entries {
		expected[e.Name] = e.Value
	}
	if !reflect.DeepEqual(decoded, expected) {
		t.Errorf("expected %q, got %q", expected, decoded)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	writeText(&buf, "")
	writeText(&buf, "one")
	writeText(&buf, "two\n")
	if buf.String() != "one\ntwo\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

// runOneShot executes the command line against a fake daemon and returns stdout.
func runOneShot(t *testing.T, routes map[string]func(string) string, args ...string) (string, error) {
	t.Helper()
	srv := daemontest.Start(t, daemontest.Routes(routes))
	t.Setenv("SHELLSERVER_CONFIG_DIR", t.TempDir())
	t.Setenv("SHELLSERVER_ADDR", srv.Addr())
	t.Setenv("SHELLSERVER_TIMEOUT_MS", "500")

	a := newApp()
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	a.detach()
	return out.String(), err
}

func fakeDaemon() map[string]func(string) string {
	return map[string]func(string) string{
		"2Get":  func(string) string { return "docs" },
		"2Conf": func(string) string { return "timeit;on\n" },
		"3": func(ref string) string {
			if ref == "docs" {
				return "/srv/docs"
			}
			return ""
		},
		"4Get": func(string) string { return "/srv/docs\n/home/me/projects" },
		"5":    func(args string) string { return "listing " + args },
	}
}

func TestOneShotJumpPrintsDirectory(t *testing.T) {
	out, err := runOneShot(t, fakeDaemon(), "p", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if out != "/srv/docs\n" {
		t.Errorf("expected /srv/docs, got %q", out)
	}
}

func TestOneShotFuzzyJump(t *testing.T) {
	out, err := runOneShot(t, fakeDaemon(), "pz", "projects")
	if err != nil {
		t.Fatal(err)
	}
	if out != "/home/me/projects\n" {
		t.Errorf("expected /home/me/projects, got %q", out)
	}
}

func TestOneShotListDirFlags(t *testing.T) {
	out, err := runOneShot(t, fakeDaemon(), "ll", "-a", "-h", "/srv")
	if err != nil {
		t.Fatal(err)
	}
	if out != "listing -ah;/srv\n" {
		t.Errorf("unexpected listing %q", out)
	}
}

func TestOneShotConfig(t *testing.T) {
	out, err := runOneShot(t, fakeDaemon(), "config")
	if err != nil {
		t.Fatal(err)
	}
	if out != "timeit = \"on\"\n" {
		t.Errorf("unexpected config output %q", out)
	}
}

func TestOneShotSuggest(t *testing.T) {
	out, err := runOneShot(t, fakeDaemon(), "suggest", "pz", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "pz docs /srv/docs" {
		t.Errorf("unexpected predictions %q", out)
	}
}

func TestOneShotFailsWithoutDaemon(t *testing.T) {
	_, err := runOneShot(t, map[string]func(string) string{}, "refs")
	if err == nil {
		t.Fatal("expected attach to fail against a silent daemon")
	}
}

func TestVersionDoesNotAttach(t *testing.T) {
	a := newApp()
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if a.fe != nil {
		t.Error("version must not contact the daemon")
	}
	if !strings.HasPrefix(out.String(), "shellserver-repl ") {
		t.Errorf("unexpected version output %q", out.String())
	}
}
