package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

var (
	errDeclined       = errors.New("changes not confirmed")
	errNonInteractive = errors.New("no terminal to confirm on")
)

// approve gates writes. With --yes or without a terminal (cron, pipelines)
// the changes are applied; an operator at a terminal is asked first.
func approve(in io.Reader, yes bool, title string) error {
	if yes {
		return nil
	}

	err := confirm(in, title)
	if errors.Is(err, errNonInteractive) {
		slog.Info("no terminal attached, applying without confirmation")
		return nil
	}

	return err
}

// confirm asks the operator before writes. It returns errNonInteractive when
// in is not a terminal.
func confirm(in io.Reader, title string) error {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return errNonInteractive
	}

	var accepted bool

	err := huh.NewConfirm().
		Title(title).
		Affirmative("Apply").
		Negative("Cancel").
		Value(&accepted).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errDeclined
		}

		return err
	}

	if !accepted {
		return errDeclined
	}

	return nil
}
