package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/retroboard/internal/boardview"
	"github.com/localnerve/retroboard/internal/facade"
)

const usage = `
Work with retroboard boards from the command line.

Usage:

retroctl [-h] [-f ENV_FILE_PATH] [-token TOKEN_FILE] COMMAND [FLAGS]

Commands:
  signup       -email EMAIL -name NAME
  login        -email EMAIL
  logout
  boards       [-team TEAM]
  create-board -title TITLE [-team TEAM] [-max-votes N]
  show         -board ID [-search TEXT] [-author USER_ID] [-by-votes]
  add-card     -board ID -column ID -content TEXT [-anonymous]
  vote         -board ID -card ID
  move         -board ID -card ID -column ID [-index N]
  react        -board ID (-emoji EMOJI | -gif URL)
  watch        -board ID [-poll]
  export       -o FILE.xlsx

RETRO_DATA_SERVICE selects remote (RETRO_API_URL) or local (RETRO_DATA_FILE) data.

example
  RETRO_DATA_SERVICE=local retroctl signup -email me@example.com -name Me
`

type command func(ctx context.Context, app *cli, args []string) error

var commands = map[string]command{
	"signup":       cmdSignup,
	"login":        cmdLogin,
	"logout":       cmdLogout,
	"boards":       cmdBoards,
	"create-board": cmdCreateBoard,
	"show":         cmdShow,
	"add-card":     cmdAddCard,
	"vote":         cmdVote,
	"move":         cmdMove,
	"react":        cmdReact,
	"watch":        cmdWatch,
	"export":       cmdExport,
}

// cli is the state shared by the commands of one invocation
type cli struct {
	ds        facade.DataService
	state     *boardview.AppState
	tokenFile string
}

func defaultTokenFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "retroboard", "token")
	}
	return ".retroctl-token"
}

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var tokenFile string
	flag.StringVar(&tokenFile, "token", defaultTokenFile(), "file holding the session token")
	flag.Parse()

	if showHelp || flag.NArg() == 0 {
		fmt.Print(usage + "\n")
		return
	}
	run, ok := commands[flag.Arg(0)]
	if !ok {
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		log.Fatalf("Unknown command %q, want one of %s\n", flag.Arg(0), strings.Join(names, ", "))
	}

	if envFilename != "" {
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	}

	ds, closeFn, err := facade.New(facade.SettingsFromEnv())
	if err != nil {
		log.Fatalf("Failed to create data service: %v\n", err)
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli{ds: ds, state: boardview.NewAppState(), tokenFile: tokenFile}
	if err := app.resume(ctx); err != nil {
		log.Printf("Stored session ignored: %v\n", err)
	}
	if err := run(ctx, app, flag.Args()[1:]); err != nil {
		log.Printf("%s failed: %v\n", flag.Arg(0), err)
		closeFn()
		os.Exit(1)
	}
}

// resume applies the stored token, if any
func (a *cli) resume(ctx context.Context) error {
	data, err := os.ReadFile(a.tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	token := strings.TrimSpace(string(data))
	a.ds.UseToken(token)
	user, err := a.ds.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		a.ds.UseToken("")
		return nil
	}
	a.state.Start(user, token)
	return nil
}

func (a *cli) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(a.tokenFile, []byte(token), 0o600)
}

func (a *cli) requireSession() error {
	if a.state.User() == nil {
		return errors.New("not signed in, run retroctl login first")
	}
	return nil
}

// view loads a board into a controller that reports failures on stderr
func (a *cli) view(ctx context.Context, boardID string) (*boardview.Controller, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	if boardID == "" {
		return nil, errors.New("-board is required")
	}
	view := boardview.NewController(a.ds, a.state, func(err error) {
		fmt.Fprintf(os.Stderr, "! %v\n", err)
	})
	if err := view.Load(ctx, boardID); err != nil {
		return nil, err
	}
	return view, nil
}
