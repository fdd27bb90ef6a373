// Package commands is the interactive command surface: a dispatch table of named
// commands and a line based console transport.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Command is a single named operation. Run returns the text shown to the user.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, args []string) (string, error)
}

var ErrUnknownCommand = errors.New("unknown command")

// Registry maps command names to commands.
type Registry struct {
	commands map[string]Command
}

func NewRegistry(commands ...Command) *Registry {
	r := &Registry{commands: map[string]Command{}}
	for _, c := range commands {
		r.Register(c)
	}
	return r
}

// Register adds a command, a command registered under an existing name replaces it.
func (r *Registry) Register(c Command) {
	r.commands[strings.ToLower(c.Name())] = c
}

// Commands returns the registered commands sorted by name.
func (r *Registry) Commands() []Command {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Command, len(names))
	for i, name := range names {
		out[i] = r.commands[name]
	}
	return out
}

// Parse splits a line into a command name and its arguments. Chat style "!name"
// and "/name" prefixes are accepted.
func Parse(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.TrimLeft(fields[0], "!/")
	return strings.ToLower(name), fields[1:]
}

// Dispatch runs the command named by the first word of line.
func (r *Registry) Dispatch(ctx context.Context, line string) (string, error) {
	name, args := Parse(line)
	if name == "" {
		return "", nil
	}
	c, ok := r.commands[name]
	if !ok {
		return "", fmt.Errorf("%w %q, try \"help\"", ErrUnknownCommand, name)
	}
	return c.Run(ctx, args)
}
