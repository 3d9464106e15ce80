package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	args  [][]string
	err   error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.err
}

func (f *fakeExec) List(ctx context.Context, args []string) error    { return f.record("list", args) }
func (f *fakeExec) Show(ctx context.Context, args []string) error    { return f.record("show", args) }
func (f *fakeExec) Add(ctx context.Context, args []string) error     { return f.record("add", args) }
func (f *fakeExec) Edit(ctx context.Context, args []string) error    { return f.record("edit", args) }
func (f *fakeExec) Delete(ctx context.Context, args []string) error  { return f.record("delete", args) }
func (f *fakeExec) Restore(ctx context.Context, args []string) error { return f.record("restore", args) }
func (f *fakeExec) Purge(ctx context.Context, args []string) error   { return f.record("purge", args) }
func (f *fakeExec) Login(ctx context.Context, args []string) error   { return f.record("login", args) }
func (f *fakeExec) Status(ctx context.Context, args []string) error  { return f.record("status", args) }

func TestRunREPL_Dispatch(t *testing.T) {
	var out bytes.Buffer

	input := strings.Join([]string{
		"help",
		"",
		"list",
		"show 123",
		"add",
		"edit 123",
		"delete 123",
		"restore 123",
		"purge 123",
		"login alice",
		"status",
		"foobar",
		"exit",
		"list",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr(input), &out)

	assert.Equal(t, []string{"list", "show", "add", "edit", "delete", "restore", "purge", "login", "status"}, exec.calls)
	assert.Equal(t, []string{"123"}, exec.args[1])
	assert.Equal(t, []string{"alice"}, exec.args[7])

	assert.Contains(t, out.String(), "Available commands")
	assert.Contains(t, out.String(), "Unknown command: foobar\n")
	assert.Contains(t, out.String(), "Bye!\n")
}

func TestRunREPL_EOFWithoutNewline(t *testing.T) {
	var out bytes.Buffer

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("list"), &out)

	assert.Equal(t, []string{"list"}, exec.calls)
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	var out bytes.Buffer

	exec := &fakeExec{err: common.ErrorNotFound}
	runREPL(context.Background(), exec, func() string { return "(root)" }, rdr("show x\nlist\nquit\n"), &out)

	assert.Equal(t, []string{"show", "list"}, exec.calls)
	assert.True(t, strings.HasPrefix(out.String(), "admin(root)> "))
	assert.Equal(t, 2, strings.Count(out.String(), "Error: account not found\n"))
}
