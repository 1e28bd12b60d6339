// SPDX-License-Identifier: MPL-2.0

package startupscript

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// shebang heads a startup script created from scratch.
const shebang = "#!/bin/sh\n"

// EnsureCommands returns script with every command in commands present,
// appending the missing ones at the end. A command counts as present if
// any statement in the script normalizes to the same shell text, so
// whitespace and quoting differences do not cause duplicate appends. The
// second return reports whether the script changed.
func EnsureCommands(script []byte, commands []string) ([]byte, bool, error) {
	// The shebang is handled outside the parser: as a plain comment its
	// placement would not survive appending to an otherwise empty script.
	head, body := splitShebang(script)

	parser := syntax.NewParser(syntax.KeepComments(true))
	file, err := parser.Parse(bytes.NewReader(body), "startup script")
	if err != nil {
		return nil, false, fmt.Errorf("parsing startup script: %w", err)
	}

	printer := syntax.NewPrinter()

	present := make(map[string]struct{}, len(file.Stmts))
	for _, stmt := range file.Stmts {
		text, err := printStmt(printer, stmt)
		if err != nil {
			return nil, false, err
		}
		present[text] = struct{}{}
	}

	changed := false
	for _, command := range commands {
		parsed, err := parser.Parse(strings.NewReader(command), "launch command")
		if err != nil {
			return nil, false, fmt.Errorf("parsing launch command %q: %w", command, err)
		}
		for _, stmt := range parsed.Stmts {
			text, err := printStmt(printer, stmt)
			if err != nil {
				return nil, false, err
			}
			if _, ok := present[text]; ok {
				continue
			}
			file.Stmts = append(file.Stmts, stmt)
			present[text] = struct{}{}
			changed = true
		}
	}

	if !changed {
		return script, false, nil
	}

	var out bytes.Buffer
	out.Write(head)
	if err := printer.Print(&out, file); err != nil {
		return nil, false, fmt.Errorf("printing startup script: %w", err)
	}
	return out.Bytes(), true, nil
}

// splitShebang separates a leading "#!" line from the script body.
func splitShebang(script []byte) (head, body []byte) {
	if !bytes.HasPrefix(script, []byte("#!")) {
		return nil, script
	}
	if i := bytes.IndexByte(script, '\n'); i >= 0 {
		return script[:i+1], script[i+1:]
	}
	return append(script, '\n'), nil
}

// EnsureInFile applies EnsureCommands to the script at path, creating
// the file with a shebang if it does not exist. Returns whether the
// file was written.
func EnsureInFile(path string, commands []string) (bool, error) {
	script, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		script = []byte(shebang)
	} else if err != nil {
		return false, fmt.Errorf("reading startup script: %w", err)
	}

	existed := err == nil
	updated, changed, err := EnsureCommands(script, commands)
	if err != nil {
		return false, err
	}
	if !changed && existed {
		return false, nil
	}
	if err := os.WriteFile(path, updated, 0o755); err != nil {
		return false, fmt.Errorf("writing startup script: %w", err)
	}
	return true, nil
}

// printStmt renders one statement in the printer's canonical form.
func printStmt(printer *syntax.Printer, stmt *syntax.Stmt) (string, error) {
	var buf bytes.Buffer
	if err := printer.Print(&buf, stmt); err != nil {
		return "", fmt.Errorf("normalizing statement: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
