// Package processtest provides a scripted process.Runner for tests.
package processtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/marcopiovanello/trackdl/server/internal/process"
)

type Call struct {
	Name string
	Args []string
}

// Flag returns the argument following flag.
func (c Call) Flag(flag string) (string, bool) {
	i := slices.Index(c.Args, flag)
	if i < 0 || i+1 >= len(c.Args) {
		return "", false
	}
	return c.Args[i+1], true
}

func (c Call) Has(flag string) bool { return slices.Contains(c.Args, flag) }

func (c Call) Last() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

func (c Call) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

type Handler func(call Call) (*process.Result, error)

// Fake dispatches calls to handlers keyed by tool base name.
type Fake struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string][]Handler
}

func New() *Fake {
	return &Fake{handlers: make(map[string][]Handler)}
}

// Handle registers h for tool. Handlers registered for the same tool are
// tried in order; the first one that does not return ErrSkip wins.
func (f *Fake) Handle(tool string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[tool] = append(f.handlers[tool], h)
	return f
}

// ErrSkip makes a handler pass the call on to the next one.
var ErrSkip = errors.New("processtest: skip")

func (f *Fake) Run(ctx context.Context, name string, args ...string) (*process.Result, error) {
	call := Call{Name: filepath.Base(name), Args: slices.Clone(args)}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handlers := f.handlers[call.Name]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &process.Result{}, err
	}

	for _, h := range handlers {
		res, err := h(call)
		if errors.Is(err, ErrSkip) {
			continue
		}
		if res == nil {
			res = &process.Result{}
		}
		return res, err
	}

	return &process.Result{}, &process.ExitError{
		Tool:   call.Name,
		Stderr: fmt.Sprintf("processtest: no handler for %s", call),
		Err:    errors.New("exit status 127"),
	}
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *Fake) CallsTo(tool string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == tool {
			out = append(out, c)
		}
	}
	return out
}

// When wraps h so it only handles calls carrying flag.
func When(flag string, h Handler) Handler {
	return func(call Call) (*process.Result, error) {
		if !call.Has(flag) {
			return nil, ErrSkip
		}
		return h(call)
	}
}

// Print succeeds with stdout.
func Print(stdout string) Handler {
	return func(Call) (*process.Result, error) {
		return &process.Result{Stdout: []byte(stdout)}, nil
	}
}

// Fail exits non-zero with stderr.
func Fail(stderr string) Handler {
	return func(call Call) (*process.Result, error) {
		return &process.Result{Stderr: []byte(stderr)}, &process.ExitError{
			Tool:   call.Name,
			Stderr: stderr,
			Err:    errors.New("exit status 1"),
		}
	}
}

// WriteOutput emulates yt-dlp: it expands the -o template with ext and
// writes size bytes there.
func WriteOutput(ext string, size int) Handler {
	return func(call Call) (*process.Result, error) {
		tmpl, ok := call.Flag("-o")
		if !ok {
			return nil, errors.New("processtest: missing -o")
		}
		path := strings.ReplaceAll(tmpl, "%(ext)s", ext)
		path = strings.ReplaceAll(path, "%%", "%")
		return &process.Result{}, os.WriteFile(path, bytes.Repeat([]byte{0xff}, size), 0o644)
	}
}

// WriteLast emulates ffmpeg: it writes size bytes to the last argument.
func WriteLast(size int) Handler {
	return func(call Call) (*process.Result, error) {
		return &process.Result{}, os.WriteFile(call.Last(), bytes.Repeat([]byte{0xaa}, size), 0o644)
	}
}
