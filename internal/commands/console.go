package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/telemetry"
)

const report_console_command = "console.command"

// Console serves the registry over a line based stream such as stdin/stdout.
type Console struct {
	registry *Registry
	in       io.Reader
	out      io.Writer
	tel      telemetry.API
}

func NewConsole(registry *Registry, in io.Reader, out io.Writer, tel telemetry.API) Console {
	assert.NotNil(registry)
	assert.NotNil(tel)
	return Console{
		registry: registry,
		in:       in,
		out:      out,
		tel:      telemetry.NewScopedAPI("commands", tel),
	}
}

// Serve dispatches every line read until the input ends or ctx is done.
func (c Console) Serve(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			c.handle(ctx, line)
		}
	}
}

func (c Console) handle(ctx context.Context, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	output, err := c.registry.Dispatch(ctx, line)
	if err != nil {
		c.tel.ReportDebug(report_console_command, line, err)
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	if output != "" {
		fmt.Fprintln(c.out, strings.TrimRight(output, "\n"))
	}
}
