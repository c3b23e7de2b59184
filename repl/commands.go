package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	shellserver "github.com/Paranoid-AF/shellserver"
	"github.com/Paranoid-AF/shellserver/frontend"
	"github.com/Paranoid-AF/shellserver/protocol"
)

const fallbackPrompt = "> "

// app is the state shared by the command tree and the interactive loop.
type app struct {
	configPath string
	verbose    bool

	state  *editorState
	fe     *frontend.Frontend
	runner *interp.Runner
	cwd    string

	lastExit     int
	lastDuration time.Duration
}

func newApp() *app {
	return &app{state: newEditorState()}
}

func (a *app) attach(ctx context.Context) error {
	setupLogging(a.verbose)

	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.cwd == "" {
		if a.cwd, err = os.Getwd(); err != nil {
			return fmt.Errorf("cannot determine cwd: %w", err)
		}
	}

	a.fe = frontend.New(cfg, frontend.WithHost(a.state))
	return a.fe.OnAttach(ctx)
}

func (a *app) detach() {
	if a.fe != nil {
		a.fe.OnDetach()
	}
}

// navigate moves the interactive shell to dir. One-shot invocations cannot
// change the parent shell's directory, so they print it instead.
func (a *app) navigate(cmd *cobra.Command, dir string, output bool) error {
	if output || a.runner == nil {
		fmt.Fprintln(cmd.OutOrStdout(), dir)
		return nil
	}
	return a.chdir(cmd.Context(), dir)
}

func (a *app) chdir(ctx context.Context, dir string) error {
	quoted, err := syntax.Quote(dir, syntax.LangBash)
	if err != nil {
		return err
	}
	file, err := syntax.NewParser().Parse(strings.NewReader("cd "+quoted), "")
	if err != nil {
		return err
	}
	if err := a.runner.Run(ctx, file); err != nil {
		return err
	}
	a.cwd = a.runner.Dir
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "shellserver-repl",
		Short: "Interactive shell front-end for the shellserver daemon",
		Long: `shellserver-repl runs an interactive shell whose prompt, directory jump
history and path predictions come from the shellserver daemon.

Without a subcommand it starts the interactive shell. Every builtin is also
available as a one-shot subcommand; jumps then print the target directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.attach(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.interactive(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "log every request and response to stderr")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+shellserver.ConfigPath()+")")

	root.AddCommand(builtinCommands(a)...)
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "shellserver-repl", Version)
		},
	})
	return root
}

// newDispatcher builds a fresh command tree for one interactive line, so
// flag values never leak from one line to the next.
func newDispatcher(a *app) *cobra.Command {
	d := &cobra.Command{
		Use:           "shellserver-repl",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	d.CompletionOptions.DisableDefaultCmd = true
	d.AddCommand(builtinCommands(a)...)
	return d
}

func isBuiltin(d *cobra.Command, name string) bool {
	for _, c := range d.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

func builtinCommands(a *app) []*cobra.Command {
	return []*cobra.Command{
		promptCmd(a),
		jumpCmd(a),
		jumpFuzzyCmd(a),
		listDirCmd(a),
		listDirAllCmd(a),
		historyCmd(a),
		themeCmd(a),
		timeoutCmd(a),
		optionsCmd(a),
		bufferCmd(a),
		configCmd(a),
		refsCmd(a),
		suggestCmd(a),
	}
}

func promptCmd(a *app) *cobra.Command {
	var (
		exitCode int
		duration time.Duration
		width    int
	)
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render the prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.fe.OnPromptRequested(a.promptRequest(exitCode, duration, width))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().IntVar(&exitCode, "exit", 0, "exit status of the previous command")
	cmd.Flags().DurationVar(&duration, "duration", 0, "run time of the previous command")
	cmd.Flags().IntVar(&width, "width", 0, "terminal width (default: detected)")
	return cmd
}

func (a *app) promptRequest(exitCode int, duration time.Duration, width int) frontend.PromptRequest {
	if width <= 0 {
		width = terminalWidth()
	}
	return frontend.PromptRequest{
		ExitCode:   exitCode,
		Cwd:        a.cwd,
		Width:      width,
		Duration:   duration,
		Admin:      adminDecoration(),
		VirtualEnv: venvDecoration(),
	}
}

func jumpCmd(a *app) *cobra.Command {
	var req frontend.JumpRequest
	cmd := &cobra.Command{
		Use:     "p [path-or-ref]",
		Aliases: []string{"set-shellserverpath"},
		Short:   "Jump to a path reference or directory",
		Long: `Jump to a path reference or directory.

Mutations run first in this order: --delete, --delete-ref, --add (named by
--as). The argument is then resolved as a path reference, an absolute path or
a directory relative to the current one. Without an argument the jump goes
home.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: refCompletion(a),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Target = args[0]
			}
			req.Cwd = a.cwd
			dir, err := a.fe.Jump(cmd.Context(), req)
			if dir == "" {
				return err
			}
			if navErr := a.navigate(cmd, dir, req.Output); navErr != nil {
				return navErr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.Delete, "delete", "d", "", "delete the path reference of this directory")
	f.StringVarP(&req.DeleteRef, "delete-ref", "r", "", "delete the path reference with this name")
	f.StringVarP(&req.Add, "add", "a", "", "add a path reference for this directory")
	f.StringVar(&req.As, "as", "", "name of the path reference created by --add")
	f.BoolVarP(&req.Output, "output", "o", false, "print the target instead of moving to it")
	f.BoolVarP(&req.Junction, "junction", "j", false, "resolve the target through its symbolic link")
	cmd.RegisterFlagCompletionFunc("delete-ref", refCompletion(a))
	return cmd
}

func refCompletion(a *app) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if a.fe == nil || len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return a.fe.CompleteRefs(toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

func jumpFuzzyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "pz <query>...",
		Aliases: []string{"set-shellserverpathfuzzy"},
		Short:   "Jump to the best fuzzy match among visited directories",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.fe.JumpFuzzy(args)
			if dir == "" {
				return err
			}
			if navErr := a.navigate(cmd, dir, false); navErr != nil {
				return navErr
			}
			return err
		},
	}
}

func listDirCmd(a *app) *cobra.Command {
	var opts frontend.ListOptions
	cmd := &cobra.Command{
		Use:     "ll [dir]",
		Aliases: []string{"get-shellserverlistdir"},
		Short:   "List a directory through the daemon",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.fe.ListDir(firstArg(args), a.cwd, opts)
			if err != nil {
				return err
			}
			writeText(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&opts.All, "all", "a", false, "include hidden entries")
	f.BoolVarP(&opts.Color, "color", "c", false, "colour entries")
	f.BoolVarP(&opts.Icons, "icons", "i", false, "show icons")
	f.BoolVarP(&opts.List, "list", "l", false, "long listing")
	f.BoolVarP(&opts.CreationTime, "creation-time", "C", false, "show creation time")
	f.BoolVarP(&opts.ModifiedTime, "modified-time", "m", false, "show modification time")
	f.BoolVarP(&opts.AccessTime, "access-time", "A", false, "show access time")
	f.BoolVarP(&opts.Hour, "hour", "H", false, "show the time of day")
	f.BoolVarP(&opts.Headers, "headers", "h", false, "show column headers")
	f.StringVar(&opts.Raw, "options", "", "raw option letters, replacing the flags above")
	f.BoolVar(&opts.SetDefault, "set-default", false, "make these options the default")
	f.BoolVar(&opts.NoOutput, "no-output", false, "do not list anything")
	return cmd
}

func listDirAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "la [dir]",
		Aliases: []string{"get-shellserverlistdirall"},
		Short:   "List a directory with every column",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.fe.ListDirAll(firstArg(args), a.cwd)
			if err != nil {
				return err
			}
			writeText(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func historyCmd(a *app) *cobra.Command {
	var caseSensitive, all, both bool
	cmd := &cobra.Command{
		Use:     "hist <token>...",
		Aliases: []string{"search-shellserverhistory"},
		Short:   "Search the command history",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, height := terminalSize()
			out, err := a.fe.SearchHistory(frontend.HistoryRequest{
				Tokens:        args,
				CaseSensitive: caseSensitive || both,
				AllSessions:   all || both,
				Width:         width,
				Height:        height,
			})
			if err != nil {
				return err
			}
			writeText(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&caseSensitive, "case-sensitive", "c", false, "match case")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "search every session")
	cmd.Flags().BoolVarP(&both, "both", "b", false, "same as -c -a")
	return cmd
}

func themeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme <name>...",
		Aliases:   []string{"switch-shellservertheme"},
		Short:     "Switch colour themes",
		Long:      "Switch colour themes. \"readline\" toggles the line editor between light and dark; the other names switch the daemon's theme.",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: append([]string{"readline"}, protocol.Themes...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fe.SwitchTheme(args...)
		},
	}
}

func timeoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "timeout <milliseconds>",
		Aliases: []string{"switch-shellservertimeout"},
		Short:   "Set the daemon receive timeout",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: timeout %q is not a number", shellserver.ErrInvalidArgument, args[0])
			}
			return a.fe.SetTimeout(time.Duration(ms) * time.Millisecond)
		},
	}
}

func optionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "options <option>...",
		Aliases:   []string{"switch-shellserveroptions"},
		Short:     "Toggle daemon options",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: protocol.Options,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fe.SetOptions(args...)
		},
	}
}

func bufferCmd(a *app) *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:     "buffer",
		Aliases: []string{"get-shellserverbuffer"},
		Short:   "Print the daemon's scroll-back buffer",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.fe.Buffer(keep)
			if err != nil {
				return err
			}
			writeText(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&keep, "keep", "k", false, "keep the buffer on the daemon")
	return cmd
}

func configCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Aliases: []string{"get-shellserverconfig"},
		Short:   "Print the daemon configuration",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.fe.Config()
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), entries)
		},
	}
}

func refsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refs [prefix]",
		Short: "List path references matching a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, ref := range a.fe.CompleteRefs(firstArg(args)) {
				fmt.Fprintln(cmd.OutOrStdout(), ref)
			}
			return nil
		},
	}
}

func suggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "suggest <line>...",
		Short:  "Print the predictions for a command line",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := a.fe.Suggest(strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
}

// interactive runs the read-eval loop until end of input or exit.
func (a *app) interactive(ctx context.Context) error {
	editor, err := NewEditor(a.state)
	if err != nil {
		return err
	}
	defer editor.Close()

	editor.Suggest = func(line string) []string {
		lines, err := a.fe.Suggest(line)
		if err != nil {
			slog.Debug("no predictions", "error", err)
			return nil
		}
		return lines
	}

	a.runner, err = interp.New(
		interp.Dir(a.cwd),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
	)
	if err != nil {
		return err
	}

	for {
		line, err := editor.ReadLine(a.renderPrompt(editor.Width()))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, ErrInterrupt) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		start := time.Now()
		a.lastExit = a.run(ctx, line)
		a.lastDuration = time.Since(start)
		a.fe.OnLineAccepted(line)

		if a.runner.Exited() {
			return nil
		}
	}
}

func (a *app) renderPrompt(width int) string {
	if a.fe.Disabled() {
		return fallbackPrompt
	}
	text, err := a.fe.OnPromptRequested(a.promptRequest(a.lastExit, a.lastDuration, width))
	if errors.Is(err, shellserver.ErrTimeout) {
		fmt.Fprintln(os.Stderr, "Server didn't respond in time. shellserver is disabled for this session.")
		return fallbackPrompt
	}
	if err != nil {
		slog.Warn("prompt failed", "error", err)
		return fallbackPrompt
	}
	return text
}

// run executes one accepted line and returns its exit status.
func (a *app) run(ctx context.Context, line string) int {
	if strings.TrimSpace(line) == "" {
		return a.lastExit
	}

	if args, err := splitArgs(line); err == nil && len(args) > 0 {
		d := newDispatcher(a)
		if isBuiltin(d, args[0]) {
			d.SetArgs(args)
			if err := d.ExecuteContext(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return 1
			}
			return 0
		}
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(line), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	err = a.runner.Run(ctx, file)
	a.cwd = a.runner.Dir

	if status, ok := interp.IsExitStatus(err); ok {
		return int(status)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// splitArgs splits a line into arguments with shell quoting rules.
func splitArgs(line string) ([]string, error) {
	var words []*syntax.Word
	err := syntax.NewParser().Words(strings.NewReader(line), func(w *syntax.Word) bool {
		words = append(words, w)
		return true
	})
	if err != nil {
		return nil, err
	}
	cfg := &expand.Config{Env: expand.ListEnviron(os.Environ()...)}
	return expand.Fields(cfg, words...)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func adminDecoration() string {
	if os.Geteuid() == 0 {
		return "(Admin) "
	}
	return ""
}

func venvDecoration() string {
	venv := os.Getenv("VIRTUAL_ENV")
	if venv == "" {
		return ""
	}
	return "(" + filepath.Base(venv) + ") "
}

func terminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80, 24
	}
	return width, height
}

func terminalWidth() int {
	w, _ := terminalSize()
	return w
}
