package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"runtime/debug"

	"golang.org/x/term"

	"github.com/aanand-mishra/student-records/internal/storage/sqlite"
)

// prompt reads a line from stdin, showing label only to a terminal. With
// mask set, terminal input is not echoed.
func prompt(label string, mask bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readPlainLine(os.Stdin)
	}
	if _, err := os.Stderr.WriteString(label); err != nil {
		return nil, err
	}
	if !mask {
		return readPlainLine(os.Stdin)
	}
	defer os.Stderr.WriteString("\n") //nolint:errcheck // newline after hidden input
	return term.ReadPassword(fd)
}

// readPlainLine returns the first line of r without its line ending. A
// final line without a newline is accepted; empty input is io.EOF.
func readPlainLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if errors.Is(err, io.EOF) && len(line) > 0 {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// version is the module version for released builds and the VCS revision
// for local ones.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	rev, dirty := "dev", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(len(s.Value), 12)]
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty {
		rev += "+dirty"
	}
	return rev
}

func openStore(ctx context.Context, rt *state) (*sqlite.SQLite, error) {
	return sqlite.New(ctx, rt.cfg.StoragePath, rt.logger)
}
