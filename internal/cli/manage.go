package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/zlogin/internal/burn"
	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/prefs"
	"github.com/zarlcorp/zlogin/internal/tui"
)

var addFlags = []string{"--user", "--password", "--action", "--user-field", "--pass-field", "--label", "--notes"}

// CmdAdd saves a credential for an origin.
func CmdAdd(ctx context.Context, env Env, args []string) error {
	pos := positional(args, addFlags...)
	if len(pos) != 1 {
		return fmt.Errorf("%w: zlogin add <origin> --user U [--password P | --generate [--copy]] [--action URL] [--user-field F --pass-field F] [--label L]", ErrUsage)
	}

	c := credential.Credential{Origin: prefs.CanonicalOrigin(pos[0])}
	c.Username, _ = flagValue(args, "--user")
	if a, ok := flagValue(args, "--action"); ok {
		c.ActionOrigin = prefs.CanonicalOrigin(a)
	}
	c.UsernameField, _ = flagValue(args, "--user-field")
	c.PasswordField, _ = flagValue(args, "--pass-field")
	c.Label, _ = flagValue(args, "--label")
	c.Notes, _ = flagValue(args, "--notes")

	generated := false
	switch p, ok := flagValue(args, "--password"); {
	case ok:
		c.Password = p
	case hasFlag(args, "--generate"):
		n := env.Config.PasswordLength
		if n <= 0 {
			n = 20
		}
		c.Password = zcrypto.GeneratePassword(n)
		generated = true
	default:
		p, err := ReadPassword(env.Stdin, "site password: ", env.Stderr)
		if err != nil {
			return err
		}
		c.Password = p
	}
	if c.Password == "" {
		return fmt.Errorf("add: empty password")
	}
	if c.UsernameField != "" && c.PasswordField == "" {
		// hinted matching keys on the password field
		env.Log.Warn("username hint ignored without --pass-field", "user-field", c.UsernameField)
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	saved, err := st.Add(ctx, c)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	fmt.Fprintf(env.Stdout, "saved %s for %s\n", saved.ID, saved.Origin)
	switch {
	case generated && hasFlag(args, "--copy"):
		if err := tui.CopyToClipboard(c.Password); err != nil {
			return fmt.Errorf("add: %w", err)
		}
		fmt.Fprintln(env.Stdout, "password copied to clipboard")
	case generated:
		fmt.Fprintf(env.Stdout, "password: %s\n", c.Password)
	}
	c.Erase()
	return nil
}

// CmdList lists saved credentials, newest first. Passwords are never
// printed.
func CmdList(ctx context.Context, env Env, args []string) error {
	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	creds, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	for i := range creds {
		creds[i].Password = ""
	}

	if hasFlag(args, "--json") {
		return printJSON(env.Stdout, creds)
	}

	if len(creds) == 0 {
		fmt.Fprintln(env.Stdout, "no saved credentials")
		return nil
	}

	for _, c := range creds {
		fmt.Fprintf(env.Stdout, "  %-36s %-30s %-24s %s\n",
			c.ID,
			c.Origin,
			c.Username,
			c.CreatedAt.Format("2006-01-02"),
		)
	}
	return nil
}

// CmdForget deletes a saved credential by ID.
func CmdForget(ctx context.Context, env Env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: zlogin forget <id>", ErrUsage)
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	fmt.Fprintf(env.Stdout, "deleted %s\n", args[0])
	return nil
}

// CmdBurn forgets a whole site after confirmation.
func CmdBurn(ctx context.Context, env Env, args []string) error {
	pos := positional(args)
	if len(pos) != 1 {
		return fmt.Errorf("%w: zlogin burn <origin> [--yes]", ErrUsage)
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

	req := burn.Request{Origin: pos[0], Credentials: st, Exceptions: pm}

	if !hasFlag(args, "--yes") {
		plan := burn.Plan(req)
		q := "burn " + prefs.CanonicalOrigin(pos[0]) + "? this will " + strings.Join(plan, ", ")
		ok, err := env.ui().Confirm(ctx, q)
		if err != nil {
			return fmt.Errorf("burn: %w", err)
		}
		if !ok {
			fmt.Fprintln(env.Stdout, "canceled")
			return nil
		}
	}

	res := burn.Execute(ctx, req)
	fmt.Fprintln(env.Stdout, res.Summary())
	if res.HasErrors() {
		return fmt.Errorf("burn: incomplete")
	}
	return nil
}

// exceptionLists maps command-line names to preference lists.
var exceptionLists = map[string]string{
	"protection": prefs.ExceptionList,
	"autologin":  prefs.AutoLoginExceptions,
}

// CmdExceptions lists, adds or removes exception origins.
func CmdExceptions(_ context.Context, env Env, args []string) error {
	usage := fmt.Errorf("%w: zlogin exceptions [protection|autologin] [add|remove <url>]", ErrUsage)

	pm, err := env.openPrefs()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, name := range []string{"protection", "autologin"} {
			list, err := pm.Exceptions(exceptionLists[name])
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Stdout, "%s:\n", name)
			for _, o := range list {
				fmt.Fprintf(env.Stdout, "  %s\n", o)
			}
		}
		return nil
	}

	list, ok := exceptionLists[args[0]]
	if !ok {
		return usage
	}

	switch {
	case len(args) == 1:
		origins, err := pm.Exceptions(list)
		if err != nil {
			return err
		}
		for _, o := range origins {
			fmt.Fprintln(env.Stdout, o)
		}
		return nil
	case len(args) == 3 && args[1] == "add":
		if err := pm.AddException(list, args[2]); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "added %s\n", prefs.CanonicalOrigin(args[2]))
		return nil
	case len(args) == 3 && args[1] == "remove":
		if err := pm.RemoveException(list, args[2]); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "removed %s\n", prefs.CanonicalOrigin(args[2]))
		return nil
	}
	return usage
}

// CmdPrefs shows or changes preferences.
func CmdPrefs(_ context.Context, env Env, args []string) error {
	pm, err := env.openPrefs()
	if err != nil {
		return err
	}

	switch {
	case len(args) == 0:
		for _, name := range prefs.Names() {
			v, err := pm.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Stdout, "%s=%s\n", name, v)
		}
		return nil
	case len(args) == 2 && args[0] == "get":
		v, err := pm.Get(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, v)
		return nil
	case len(args) >= 2 && args[0] == "set":
		return pm.Set(args[1], strings.Join(args[2:], " "))
	case len(args) == 2 && args[0] == "reset":
		return pm.Reset(args[1])
	}
	return fmt.Errorf("%w: zlogin prefs [get <name> | set <name> <value> | reset <name>]", ErrUsage)
}
