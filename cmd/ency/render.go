package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrymomot/ency/pkg/authstate"
	"github.com/dmitrymomot/ency/pkg/validator"
)

func (a *app) printUser(cmd *cobra.Command, u authstate.User) {
	if a.out == "json" {
		a.printJSON(cmd, u)
		return
	}
	cmd.Println(describeUser(u))
}

func (a *app) printState(cmd *cobra.Command, s authstate.State) {
	if a.out == "json" {
		a.printJSON(cmd, s)
		return
	}
	if s.IsLoading {
		cmd.Println("loading")
		return
	}
	cmd.Println(describeUser(s.User))
}

func (a *app) printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func describeUser(u authstate.User) string {
	if !u.IsAuthenticated() {
		return "not signed in"
	}
	var b strings.Builder
	if u.Name != "" {
		fmt.Fprintf(&b, "%s <%s>", u.Name, u.Email)
	} else {
		b.WriteString(u.Email)
	}
	fmt.Fprintf(&b, " uid=%s verified=%t", u.UID, u.IsVerified)
	return b.String()
}

// describeError renders action failures the way a form would: one line per
// failed field, or the form-level message.
func describeError(err error) string {
	var ae *authstate.Error
	if !errors.As(err, &ae) {
		return "error: " + err.Error()
	}
	if ae.Kind == authstate.KindValidation {
		if ve := validator.ExtractValidationErrors(ae.Err); len(ve) > 0 {
			lines := make([]string, 0, len(ve))
			for _, v := range ve {
				lines = append(lines, v.Field+": "+v.Message)
			}
			return strings.Join(lines, "\n")
		}
	}
	if f := ae.Field(); f != "" {
		return f + ": " + ae.Message()
	}
	return ae.Message()
}

// prompt reads one line for label. On a terminal the input is not echoed.
func (a *app) prompt(cmd *cobra.Command, label string) (string, error) {
	cmd.PrintErr(label)
	if fd, ok := terminalFd(cmd.InOrStdin()); ok {
		b, err := term.ReadPassword(fd)
		cmd.PrintErrln()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if a.stdin == nil {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func terminalFd(r io.Reader) (int, bool) {
	f, ok := r.(interface{ Fd() uintptr })
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}
