package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/zarlcorp/zlogin/internal/browser"
	"github.com/zarlcorp/zlogin/internal/page"
	"github.com/zarlcorp/zlogin/internal/prefs"
	"github.com/zarlcorp/zlogin/internal/session"
	"github.com/zarlcorp/zlogin/internal/store"
	"github.com/zarlcorp/zlogin/internal/transport"
	"github.com/zarlcorp/zlogin/internal/tui"
)

// candidate is the scan output for one login.
type candidate struct {
	Index    int    `json:"index"`
	Username string `json:"username"`
	Form     int    `json:"form"`
	Method   string `json:"method"`
	Action   string `json:"action"`
}

func (e Env) ui() session.UI {
	if e.UI != nil {
		return e.UI
	}
	if isTerminal(e.Stdin) {
		return tui.New(e.Stdin, e.Stderr)
	}
	return NewLineUI(e.Stdin, e.Stderr)
}

func (e Env) newTab(st *store.Store, pm *prefs.Manager) (*browser.Tab, *session.Session, error) {
	client, err := transport.NewClient(transport.Config{
		UserAgent: e.Config.UserAgent,
		Timeout:   e.Config.HTTPTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	limits := page.DefaultFrameLimits
	if e.Config.FrameDepth > 0 {
		limits.Depth = e.Config.FrameDepth
	}
	tab := browser.New(client, browser.WithLogger(e.Log), browser.WithFrameLimits(limits))

	sess, err := session.New(session.Config{
		Store:     st,
		Prefs:     pm,
		Navigator: tab,
		UI:        e.ui(),
		Log:       e.Log,
	})
	if err != nil {
		return nil, nil, err
	}
	return tab, sess, nil
}

// CmdLogin opens a page and logs in to it.
func CmdLogin(ctx context.Context, env Env, args []string) error {
	pos := positional(args, "--index")
	if len(pos) != 1 {
		return fmt.Errorf("%w: zlogin login <url> [--index N]", ErrUsage)
	}

	opts := session.LoginOptions{}
	if v, ok := flagValue(args, "--index"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: --index %q", ErrUsage, v)
		}
		opts.Index, opts.HasIndex = n, true
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	pm, err := env.openPrefs()
	if err != nil {
		return err
	}

	tab, sess, err := env.newTab(st, pm)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer tab.Close()
	tab.SetOnLoad(sess.OnLoad)

	if err := tab.Open(ctx, pos[0]); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	// an automatic or bookmark login already navigated away
	if len(tab.History()) == 1 {
		if err := sess.Login(ctx, nil, opts); err != nil {
			if errors.Is(err, session.ErrNoLogins) {
				return fmt.Errorf("login: no logins found on %s", pos[0])
			}
			return fmt.Errorf("login: %w", err)
		}
	}

	doc := tab.Window().Page()
	if len(tab.History()) == 1 {
		fmt.Fprintf(env.Stdout, "filled %s\n", doc.URL())
		return nil
	}
	fmt.Fprintf(env.Stdout, "logged in: %s", doc.URL())
	if t := doc.Title(); t != "" {
		fmt.Fprintf(env.Stdout, " (%s)", t)
	}
	fmt.Fprintln(env.Stdout)
	return nil
}

// CmdScan lists the logins found on a page without logging in.
func CmdScan(ctx context.Context, env Env, args []string) error {
	pos := positional(args)
	if len(pos) != 1 {
		return fmt.Errorf("%w: zlogin scan <url> [--json]", ErrUsage)
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	pm, err := env.openPrefs()
	if err != nil {
		return err
	}

	tab, sess, err := env.newTab(st, pm)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	defer tab.Close()

	if err := tab.Open(ctx, pos[0]); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := sess.Search(ctx, tab.Window()); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	found := sess.Candidates()
	out := make([]candidate, len(found))
	for i, f := range found {
		out[i] = candidate{
			Index:    i,
			Username: f.Credential.Username,
			Form:     f.Form.Index,
			Method:   f.Form.Method,
			Action:   f.ActionURI,
		}
		found[i].Credential.Erase()
	}

	if hasFlag(args, "--json") {
		return printJSON(env.Stdout, out)
	}

	if len(out) == 0 {
		fmt.Fprintln(env.Stdout, "no logins found")
		return nil
	}
	for _, c := range out {
		fmt.Fprintf(env.Stdout, "  %-3d %-30s form %-3d %-4s %s\n", c.Index, c.Username, c.Form, c.Method, c.Action)
	}
	return nil
}

// CmdBookmark prints a URL that logs in when opened.
func CmdBookmark(_ context.Context, env Env, args []string) error {
	pos := positional(args, "--index")
	if len(pos) != 1 {
		return fmt.Errorf("%w: zlogin bookmark <url> [--index N]", ErrUsage)
	}

	index := -1
	if v, ok := flagValue(args, "--index"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: --index %q", ErrUsage, v)
		}
		index = n
	}

	pm, err := env.openPrefs()
	if err != nil {
		return err
	}
	if !pm.Current().SecureLoginBookmarks {
		return fmt.Errorf("bookmark: %s is off", prefs.SecureLoginBookmarks)
	}

	hash, err := pm.EnsureBookmarkHash()
	if err != nil {
		return err
	}
	u, err := session.BookmarkURL(pos[0], hash, index)
	if err != nil {
		return fmt.Errorf("bookmark: %w", err)
	}
	fmt.Fprintln(env.Stdout, u)
	return nil
}
