package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	calls [][]string
	err   error
}

func (f *fakeExec) Execute(_ context.Context, args []string) error {
	f.calls = append(f.calls, args)
	if args[0] == "exit" {
		return errExit
	}
	return f.err
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			if s, ok := v.(string); ok {
				parts[i] = s
			} else if e, ok := v.(error); ok {
				parts[i] = e.Error()
			}
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &printed
}

func TestRunREPL_DispatchesUntilExit(t *testing.T) {
	silence(t)

	input := strings.Join([]string{
		"help",
		"",
		`add contacts name="Ann Lee"`,
		"exit",
		"list expenses",
	}, "\n")
	ex := &fakeExec{}

	runREPL(context.Background(), ex, func() string { return "(u online)" }, bufio.NewReader(strings.NewReader(input)))

	require.Len(t, ex.calls, 3)
	assert.Equal(t, []string{"help"}, ex.calls[0])
	assert.Equal(t, []string{"add", "contacts", "name=Ann Lee"}, ex.calls[1])
	assert.Equal(t, []string{"exit"}, ex.calls[2])
}

func TestRunREPL_ErrorsDoNotStopTheLoop(t *testing.T) {
	printed := silence(t)

	ex := &fakeExec{err: errors.New("boom")}
	runREPL(context.Background(), ex, func() string { return "" }, bufio.NewReader(strings.NewReader("a\nb")))

	assert.Len(t, ex.calls, 2, "last line without newline still runs")
	assert.Contains(t, *printed, "Error: boom")
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	silence(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := &fakeExec{}
	runREPL(ctx, ex, func() string { return "" }, bufio.NewReader(strings.NewReader("status\n")))
	assert.Empty(t, ex.calls)
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{in: "  list   expenses \n", want: []string{"list", "expenses"}},
		{in: `add contacts name="Ann Lee" note='a b'`, want: []string{"add", "contacts", "name=Ann Lee", "note=a b"}},
		{in: `edit x ""`, want: []string{"edit", "x", ""}},
		{in: "\t\n", want: nil},
		{in: `add "oops`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := splitLine(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
