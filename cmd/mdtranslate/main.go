package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/config"
	"github.com/csheth/mdtranslate/internal/orchestrator"
	"github.com/csheth/mdtranslate/internal/stream"
)

var Version = "dev"

type CLI struct {
	Config    string `help:"Configuration file (default: $MDTRANSLATE_CONFIG or the user config dir)" type:"path"`
	Server    string `help:"Translation server URL, overrides server_url"`
	Direction string `help:"Translation direction: en2zh or zh2en"`

	Tui       TuiCmd       `cmd:"" default:"withargs" help:"Open the interactive workspace (default)"`
	Translate TranslateCmd `cmd:"" help:"Translate a document without the interface"`
	History   HistoryCmd   `cmd:"" help:"Inspect saved translations"`
	Settings  SettingsCmd  `cmd:"" help:"Show or change the server's translation settings"`
	Serve     ServeCmd     `cmd:"" help:"Run the development translation server"`
	Cfg       ConfigCmd    `cmd:"" name:"config" help:"Print the effective configuration"`
	Version   VersionCmd   `cmd:"" help:"Print the version"`
}

// load reads the configuration and applies the global flags on top.
func (c *CLI) load() (config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return config.Config{}, err
	}
	if c.Server != "" {
		cfg.ServerURL = c.Server
	}
	if c.Direction != "" {
		cfg.Direction = c.Direction
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// app carries what every command needs.
type app struct {
	cfg    config.Config
	client *api.Client
	out    io.Writer
	errOut io.Writer
}

func newApp(cfg config.Config, out, errOut io.Writer) *app {
	return &app{cfg: cfg, client: api.New(cfg.ServerURL, nil), out: out, errOut: errOut}
}

func (a *app) orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		Submitter: a.client,
		History:   a.client,
		Dialer:    stream.WebSocketDialer{BaseURL: a.cfg.StreamBase()},
	})
}

func (a *app) direction() api.Direction {
	return api.ParseDirection(a.cfg.Direction)
}

func run(args []string, stdout, stderr io.Writer, options ...kong.Option) error {
	var cli CLI
	options = append([]kong.Option{
		kong.Name("mdtranslate"),
		kong.Description("Translate Markdown documents chunk by chunk."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	}, options...)
	parser, err := kong.New(&cli, options...)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cfg, err := cli.load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return ctx.Run(newApp(cfg, stdout, stderr))
}

func main() {
	// A missing .env is fine; the variables may come from the shell.
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "mdtranslate:", err)
		os.Exit(1)
	}
}

type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	_, err := fmt.Fprintf(a.out, "mdtranslate %s\n", Version)
	return err
}
