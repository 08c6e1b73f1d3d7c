package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/inhies/go-bytesize"
	"github.com/pterm/pterm"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		pterm.Info.Println("Nothing to show")
		return nil
	}
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.
		WithHasHeader().
		WithBoxed(true).
		WithData(data).
		Render()
}

func humanSize(n int64) string {
	return bytesize.New(float64(n)).String()
}

func humanKB(kb int64) string {
	return humanSize(kb * 1024)
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// isInteractive reports whether stdin is a terminal.
func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// confirm asks a yes/no question. Without a terminal it refuses rather
// than guessing.
func confirm(title, description string) (bool, error) {
	if !isInteractive() {
		return false, fmt.Errorf("%s: confirmation required, pass --yes", title)
	}

	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
