package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/csheth/mdtranslate/internal/config"
	"github.com/csheth/mdtranslate/internal/devserver"
	"github.com/csheth/mdtranslate/internal/llm"
)

type ServeCmd struct {
	Addr        string `help:"Listen address (default: serve.addr)"`
	DataDir     string `help:"Directory holding the SQLite database (default: serve.data_dir)" type:"path"`
	Provider    string `help:"mock, qwen or ollama (default: inferred from the environment)"`
	Model       string `help:"Model name passed to the provider"`
	Concurrency int    `help:"Chunks translated at once (default: serve.concurrency)"`
}

func (c *ServeCmd) Run(a *app) error {
	serve := a.cfg.Serve
	if c.Addr != "" {
		serve.Addr = c.Addr
	}
	if c.DataDir != "" {
		serve.DataDir = c.DataDir
	}
	if c.Provider != "" && c.Provider != serve.Provider {
		serve.Provider = c.Provider
		serve.Model, serve.Endpoint = "", ""
	}
	if c.Model != "" {
		serve.Model = c.Model
	}
	if c.Concurrency > 0 {
		serve.Concurrency = c.Concurrency
	}

	translator, err := llm.New(llm.Config{
		Provider: serve.Provider,
		Model:    serve.Model,
		Endpoint: serve.Endpoint,
		APIKey:   serve.APIKey,
	})
	if err != nil {
		return fmt.Errorf("configure %s translator: %w", serve.Provider, err)
	}
	store, err := devserver.OpenStore(serve.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := devserver.New(devserver.Config{
		Store:        store,
		Translator:   translator,
		Concurrency:  serve.Concurrency,
		ContextChars: serve.ContextChars,
		Model:        serve.Model,
	})
	fmt.Fprintf(a.errOut, "serving %s on %s (data in %s)\n", srv, serve.Addr, serve.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, serve.Addr)
}

type ConfigCmd struct {
	Write bool `help:"Save the effective configuration to the config file"`
}

func (c *ConfigCmd) Run(a *app) error {
	if c.Write {
		path := a.cfg.Path
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.Save(path, a.cfg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(a.out, "wrote %s\n", path)
		return err
	}
	shown := a.cfg
	if shown.Serve.APIKey != "" {
		shown.Serve.APIKey = "********"
	}
	data, err := yaml.Marshal(shown)
	if err != nil {
		return err
	}
	_, err = a.out.Write(data)
	return err
}
