package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/mdtranslate/internal/api"
)

const (
	fieldProvider = iota
	fieldModel
	fieldTemperature
	fieldChunks
	fieldAutoSave
	fieldCount
)

var settingsLabels = [fieldCount]string{"Provider", "Model", "Temperature (0.0-1.0)", "Chunks", "Auto-save history"}

// settingsForm edits api.Settings. Auto-save is a toggle; everything else
// is a text field.
type settingsForm struct {
	inputs   [fieldAutoSave]textinput.Model
	autoSave bool
	cursor   int
	loaded   bool
}

func newSettingsForm() settingsForm {
	var f settingsForm
	for i := range f.inputs {
		input := textinput.New()
		input.CharLimit = 64
		input.Width = 32
		f.inputs[i] = input
	}
	f.inputs[fieldTemperature].CharLimit = 6
	f.inputs[fieldChunks].CharLimit = 4
	f.fill(api.DefaultSettings())
	return f
}

func (f *settingsForm) fill(s api.Settings) {
	f.inputs[fieldProvider].SetValue(s.ModelProvider)
	f.inputs[fieldModel].SetValue(s.ModelName)
	f.inputs[fieldTemperature].SetValue(strconv.FormatFloat(s.Temperature, 'f', -1, 64))
	f.inputs[fieldChunks].SetValue(strconv.Itoa(s.ChunkCount))
	f.autoSave = s.AutoSaveHistory
	f.loaded = true
	f.focus(0)
}

// value parses the form back into settings and validates them.
func (f *settingsForm) value() (api.Settings, error) {
	s := api.Settings{
		ModelProvider:   strings.TrimSpace(f.inputs[fieldProvider].Value()),
		ModelName:       strings.TrimSpace(f.inputs[fieldModel].Value()),
		AutoSaveHistory: f.autoSave,
	}
	temperature, err := strconv.ParseFloat(strings.TrimSpace(f.inputs[fieldTemperature].Value()), 64)
	if err != nil {
		return api.Settings{}, fmt.Errorf("temperature: %w", err)
	}
	s.Temperature = temperature
	chunks, err := strconv.Atoi(strings.TrimSpace(f.inputs[fieldChunks].Value()))
	if err != nil {
		return api.Settings{}, fmt.Errorf("chunks: %w", err)
	}
	s.ChunkCount = chunks
	if err := s.Validate(); err != nil {
		return api.Settings{}, err
	}
	return s, nil
}

func (f *settingsForm) focus(index int) {
	if index < 0 {
		index = fieldCount - 1
	}
	f.cursor = index % fieldCount
	for i := range f.inputs {
		if i == f.cursor {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (f *settingsForm) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		f.focus(f.cursor + 1)
		return nil
	case "shift+tab", "up":
		f.focus(f.cursor - 1)
		return nil
	case " ":
		if f.cursor == fieldAutoSave {
			f.autoSave = !f.autoSave
			return nil
		}
	}
	if f.cursor == fieldAutoSave {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.cursor], cmd = f.inputs[f.cursor].Update(msg)
	return cmd
}

func (f *settingsForm) View() string {
	rows := make([]string, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		label := fmt.Sprintf("%-22s", settingsLabels[i])
		var field string
		if i == fieldAutoSave {
			field = "[ ]"
			if f.autoSave {
				field = "[x]"
			}
		} else {
			field = f.inputs[i].View()
		}
		row := label + " " + field
		if i == f.cursor {
			row = selectedRowStyle.Render(label) + " " + field
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}
