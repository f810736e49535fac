package main

import (
	"context"
	"fmt"
)

type SettingsCmd struct {
	Show SettingsShowCmd `cmd:"" default:"1" help:"Print the current settings (default)"`
	Set  SettingsSetCmd  `cmd:"" help:"Change settings; unset flags keep their value"`
}

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(a *app) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	settings, err := a.client.GetSettings(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "provider:    %s\nmodel:       %s\ntemperature: %g\nchunks:      %d\nauto_save:   %t\n",
		settings.ModelProvider, settings.ModelName, settings.Temperature, settings.ChunkCount, settings.AutoSaveHistory)
	return err
}

type SettingsSetCmd struct {
	Provider    *string  `help:"LLM provider"`
	Model       *string  `help:"LLM model"`
	Temperature *float64 `help:"Sampling temperature, 0.0-1.0"`
	Chunks      *int     `help:"Number of chunks a document is split into"`
	AutoSave    bool     `help:"Keep translations in the history" xor:"autosave"`
	NoAutoSave  bool     `help:"Stop keeping translations in the history" xor:"autosave"`
}

func (c *SettingsSetCmd) Run(a *app) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	settings, err := a.client.GetSettings(ctx)
	if err != nil {
		return err
	}
	if c.Provider != nil {
		settings.ModelProvider = *c.Provider
	}
	if c.Model != nil {
		settings.ModelName = *c.Model
	}
	if c.Temperature != nil {
		settings.Temperature = *c.Temperature
	}
	if c.Chunks != nil {
		settings.ChunkCount = *c.Chunks
	}
	if c.AutoSave {
		settings.AutoSaveHistory = true
	}
	if c.NoAutoSave {
		settings.AutoSaveHistory = false
	}
	if err := a.client.SaveSettings(ctx, settings); err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, "settings saved")
	return err
}
