package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/jrsteele09/mcc-client/router"
	"github.com/jrsteele09/mcc-client/sessions"
	"github.com/jrsteele09/mcc-client/users"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	_ sessions.View     = (*console)(nil)
	_ sessions.Notifier = (*console)(nil)
)

// console is the terminal front end. Data goes to out; status lines and
// notifications go to errOut so output stays pipeable.
type console struct {
	out    io.Writer
	errOut io.Writer
	format string

	lock    sync.Mutex
	pageErr error
}

func newConsole(out, errOut io.Writer, format string) (*console, error) {
	switch format {
	case outputJSON, outputYAML:
	default:
		return nil, fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
	return &console{out: out, errOut: errOut, format: format}, nil
}

func (c *console) ShowApp(user users.User) {
	fmt.Fprintf(c.errOut, "Signed in as %s <%s>\n", user.DisplayName(), user.Email)
}

func (c *console) ShowLogin() {
	fmt.Fprintln(c.errOut, "Not signed in. Run 'mcc login' to continue.")
}

func (c *console) Notify(_ context.Context, n sessions.Notification) {
	marker := "•"
	switch n.Level {
	case sessions.LevelSuccess:
		marker = "✓"
	case sessions.LevelError:
		marker = "✗"
	}
	if n.Message == "" {
		fmt.Fprintf(c.errOut, "%s %s\n", marker, n.Title)
		return
	}
	fmt.Fprintf(c.errOut, "%s %s %s\n", marker, n.Title, n.Message)
}

// showPage prints the data of the page that was opened.
func (c *console) showPage(_ context.Context, result router.Result) {
	if result.Err != nil {
		c.lock.Lock()
		c.pageErr = fmt.Errorf("load %s: %w", result.Page.Label, result.Err)
		c.lock.Unlock()
		return
	}
	fmt.Fprintf(c.errOut, "%s\n", result.Page.Label)
	if err := c.render(result.Data); err != nil {
		c.lock.Lock()
		c.pageErr = err
		c.lock.Unlock()
	}
}

func (c *console) lastPageErr() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.pageErr
}

// render prints v in the selected format. Values are passed through JSON first
// so raw payloads render as structured YAML.
func (c *console) render(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}

	if c.format == outputYAML {
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("write yaml: %w", err)
		}
		return enc.Close()
	}
	pretty, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(c.out, string(pretty))
	return err
}
