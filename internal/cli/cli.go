// Package cli implements zlogin's command-line subcommands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zlogin/internal/prefs"
	"github.com/zarlcorp/zlogin/internal/session"
	"github.com/zarlcorp/zlogin/internal/store"
	"golang.org/x/term"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage")

// DataDir returns the default data directory for zlogin.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d + "/zlogin"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zlogin"
	}
	return home + "/.local/share/zlogin"
}

// ReadPassword prompts for a password on w and reads it from in. A
// terminal is read without echo; anything else is read one line at a time.
func ReadPassword(in io.Reader, prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

// ReadNewPassword prompts for a new password with confirmation.
func ReadNewPassword(in io.Reader, w io.Writer) (string, error) {
	pass, err := ReadPassword(in, "master password: ", w)
	if err != nil {
		return "", err
	}
	confirm, err := ReadPassword(in, "confirm password: ", w)
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// TerminalUnlocker reads the master password from in without a
// full-screen prompt.
func TerminalUnlocker(in io.Reader, w io.Writer) store.Unlocker {
	return store.UnlockFunc(func(_ context.Context, create bool) (string, error) {
		if create {
			return ReadNewPassword(in, w)
		}
		return ReadPassword(in, "master password: ", w)
	})
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readLine reads up to a newline one byte at a time so that later reads
// from the same reader see the rest. A final line without a newline is
// returned; an empty reader yields io.EOF.
func readLine(r io.Reader) (string, error) {
	var (
		line []byte
		b    [1]byte
	)
	if r == nil {
		return "", io.EOF
	}
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			if b[0] == '\n' {
				break
			}
			line = append(line, b[0])
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				return "", io.EOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSuffix(string(line), "\r"), nil
}

// Env carries what commands need from the process.
type Env struct {
	Config   Config
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Log      *slog.Logger
	Unlocker store.Unlocker
	UI       session.UI
	// FS overrides the data directory, for tests.
	FS zfilesystem.ReadWriteFileFS
}

// Run dispatches args[0] to a subcommand.
func Run(ctx context.Context, env Env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: zlogin <command> [args]", ErrUsage)
	}
	if env.Log == nil {
		env.Log = slog.Default()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return CmdLogin(ctx, env, rest)
	case "scan":
		return CmdScan(ctx, env, rest)
	case "bookmark":
		return CmdBookmark(ctx, env, rest)
	case "add":
		return CmdAdd(ctx, env, rest)
	case "list":
		return CmdList(ctx, env, rest)
	case "forget":
		return CmdForget(ctx, env, rest)
	case "burn":
		return CmdBurn(ctx, env, rest)
	case "exceptions":
		return CmdExceptions(ctx, env, rest)
	case "prefs":
		return CmdPrefs(ctx, env, rest)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (e Env) dataFS() (zfilesystem.ReadWriteFileFS, error) {
	if e.FS != nil {
		return e.FS, nil
	}
	dir := e.Config.DataDir
	if dir == "" {
		dir = DataDir()
	}
	if err := os.MkdirAll(filepath.Clean(dir), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return zfilesystem.NewOSFileSystem(dir), nil
}

func (e Env) openStore() (*store.Store, error) {
	fsys, err := e.dataFS()
	if err != nil {
		return nil, err
	}
	u := e.Unlocker
	if u == nil {
		u = TerminalUnlocker(e.Stdin, e.Stderr)
	}
	return store.Open(fsys, u)
}

func (e Env) openPrefs() (*prefs.Manager, error) {
	fsys, err := e.dataFS()
	if err != nil {
		return nil, err
	}
	return prefs.Load(fsys)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) {
			return true
		}
	}
	return false
}

// flagValue returns the value of "--name value" or "--name=value".
func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, flag+"="); ok {
			return v, true
		}
		if strings.EqualFold(a, flag) && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

// positional returns the arguments that are neither flags nor values of
// the named valued flags.
func positional(args []string, valued ...string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			out = append(out, a)
			continue
		}
		for _, v := range valued {
			if strings.EqualFold(a, v) {
				i++
				break
			}
		}
	}
	return out
}
