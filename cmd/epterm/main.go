package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/electrophobia/epterm/internal/api"
	"github.com/electrophobia/epterm/internal/app"
	"github.com/electrophobia/epterm/internal/mockapi"
)

const usage = `usage: epterm [flags] [command]

Commands:
  tui                     start the terminal UI (default)
  login [--email e]       log in as the site admin
  logout                  drop the stored session
  whoami                  show the stored session
  list <kind> [flags]     print blogs, projects, experiences, products or contacts
  mock [--addr a]         run the mock backend for development

Flags:
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("epterm", flag.ContinueOnError)
	configPath := global.String("config", "", "override config path (optional)")
	prefsPath := global.String("prefs", "", "override prefs path (optional)")
	debug := global.Bool("debug", false, "log at debug level")
	global.Usage = func() {
		fmt.Fprint(global.Output(), usage)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, PrefsPath: *prefsPath, LogLevel: slog.LevelInfo}
	if *debug {
		opts.LogLevel = slog.LevelDebug
	}

	cmd, rest := "tui", global.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	var err error
	switch cmd {
	case "tui":
		err = app.Run(ctx, opts)
	case "login":
		err = withApp(opts, func(a *app.App) error { return login(ctx, a, rest) })
	case "logout":
		err = withApp(opts, func(a *app.App) error {
			if err := a.Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		})
	case "whoami":
		err = withApp(opts, whoami)
	case "list":
		err = withApp(opts, func(a *app.App) error { return list(ctx, a, rest) })
	case "mock":
		err = mock(ctx, opts, rest)
	default:
		fmt.Fprintf(os.Stderr, "epterm: unknown command %q\n", cmd)
		global.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "epterm: %v\n", err)
		return 1
	}
	return 0
}

func withApp(opts app.Options, fn func(*app.App) error) error {
	a, err := app.New(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func login(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "admin email")
	passwordEnv := fs.String("password-env", "EPTERM_PASSWORD", "environment variable holding the password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	if strings.TrimSpace(*email) == "" {
		fmt.Print("Email: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read email: %w", err)
		}
		*email = strings.TrimSpace(line)
	}
	password := os.Getenv(*passwordEnv)
	if password == "" {
		var err error
		if password, err = readPassword(in); err != nil {
			return err
		}
	}

	admin, err := a.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Login successful. Signed in as %s (%s).\n", admin.Name, admin.Email)
	return nil
}

func readPassword(in *bufio.Reader) (string, error) {
	fmt.Print("Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func whoami(a *app.App) error {
	id, err := a.Whoami()
	if err != nil {
		return err
	}
	name := id.Admin.Name
	if name == "" {
		name = id.Subject
	}
	fmt.Printf("Signed in as %s <%s>", name, id.Admin.Email)
	if id.Admin.Role != "" {
		fmt.Printf(" role=%s", id.Admin.Role)
	}
	fmt.Println()
	if !id.ExpiresAt.IsZero() {
		state := "expires"
		if time.Now().After(id.ExpiresAt) {
			state = "expired"
		}
		fmt.Printf("Token %s %s\n", state, id.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func list(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("list needs a resource: %s", strings.Join(app.Kinds(), ", "))
	}
	kind, args := args[0], args[1:]
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	category := fs.String("category", "", "only this category")
	search := fs.String("search", "", "full-text search")
	watch := fs.Bool("watch", false, "reprint on every change event until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter := api.Filter{Category: *category, Search: *search}

	if !*watch {
		rows, err := a.List(ctx, kind, filter)
		if err != nil {
			return err
		}
		fmt.Println(renderRows(rows))
		return nil
	}
	return a.WatchList(ctx, kind, filter, func(rows []app.Row, err error) {
		fmt.Printf("\n%s %s\n", time.Now().Format("15:04:05"), kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "epterm: %v\n", err)
			return
		}
		fmt.Println(renderRows(rows))
	})
}

func renderRows(rows []app.Row) string {
	if len(rows) == 0 {
		return "No records."
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "CATEGORY", "DETAIL")
	for _, r := range rows {
		t.Row(r.ID, r.Title, r.Category, r.Detail)
	}
	return t.Render()
}

func mock(ctx context.Context, opts app.Options, args []string) error {
	fs := flag.NewFlagSet("mock", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:5000", "listen address")
	seedPath := fs.String("seed", "", "YAML seed file with the admin account and records")
	secret := fs.String("jwt-secret", os.Getenv("JWT_SECRET"), "token signing secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts.LogWriter = os.Stderr
	return withApp(opts, func(*app.App) error {
		serverOpts := mockapi.Options{JWTSecret: *secret}
		if *seedPath != "" {
			seed, err := mockapi.LoadSeed(*seedPath)
			if err != nil {
				return err
			}
			serverOpts.Seed = &seed
		}
		srv, err := mockapi.New(serverOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Mock backend on http://%s/api\n", *addr)
		return srv.ListenAndServe(ctx, *addr)
	})
}
