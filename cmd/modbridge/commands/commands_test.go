package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/modbridge/cmd/modbridge/commands"
	"go.trai.ch/modbridge/internal/build"
)

type mockApp struct {
	resolveFunc   func(ctx context.Context, w io.Writer, dir string, ids []string) error
	depsFunc      func(ctx context.Context, w io.Writer, dir, entry string) error
	idFunc        func(ctx context.Context, w io.Writer, dir string, ids []string) error
	translateFunc func(w io.Writer, specs []string) error
	cleanFunc     func(ctx context.Context, dir string) error
}

func (m *mockApp) Resolve(ctx context.Context, w io.Writer, dir string, ids []string) error {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, w, dir, ids)
	}
	return nil
}

func (m *mockApp) Deps(ctx context.Context, w io.Writer, dir, entry string) error {
	if m.depsFunc != nil {
		return m.depsFunc(ctx, w, dir, entry)
	}
	return nil
}

func (m *mockApp) ID(ctx context.Context, w io.Writer, dir string, ids []string) error {
	if m.idFunc != nil {
		return m.idFunc(ctx, w, dir, ids)
	}
	return nil
}

func (m *mockApp) Translate(w io.Writer, specs []string) error {
	if m.translateFunc != nil {
		return m.translateFunc(w, specs)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, dir string) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, dir)
	}
	return nil
}

func TestCommands_Resolve(t *testing.T) {
	t.Run("wires arguments and dir flag", func(t *testing.T) {
		var capturedDir string
		var capturedIDs []string

		mock := &mockApp{
			resolveFunc: func(_ context.Context, w io.Writer, dir string, ids []string) error {
				capturedDir = dir
				capturedIDs = ids
				fmt.Fprintln(w, "resolved")
				return nil
			},
		}

		cli := commands.New(mock)
		buf := new(bytes.Buffer)
		cli.SetOutput(buf, buf)
		cli.SetArgs([]string{"resolve", "-C", "/some/project", "file:///app/main.ts", "react"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/some/project", capturedDir)
		assert.Equal(t, []string{"file:///app/main.ts", "react"}, capturedIDs)
		assert.Contains(t, buf.String(), "resolved")
	})

	t.Run("defaults dir to the current directory", func(t *testing.T) {
		var capturedDir string
		mock := &mockApp{
			resolveFunc: func(_ context.Context, _ io.Writer, dir string, _ []string) error {
				capturedDir = dir
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"resolve", "file:///app/main.ts"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, ".", capturedDir)
	})

	t.Run("requires at least one specifier", func(t *testing.T) {
		mock := &mockApp{
			resolveFunc: func(_ context.Context, _ io.Writer, _ string, _ []string) error {
				panic("should not be called")
			},
		}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"resolve"})

		assert.Error(t, cli.Execute(context.Background()))
	})

	t.Run("returns error on resolution failure", func(t *testing.T) {
		mock := &mockApp{
			resolveFunc: func(_ context.Context, _ io.Writer, _ string, _ []string) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"resolve", "file:///app/main.ts"})

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_Deps(t *testing.T) {
	t.Run("wires the entry specifier", func(t *testing.T) {
		var capturedEntry string
		mock := &mockApp{
			depsFunc: func(_ context.Context, _ io.Writer, _, entry string) error {
				capturedEntry = entry
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"deps", "file:///app/main.ts"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, "file:///app/main.ts", capturedEntry)
	})

	t.Run("rejects multiple entries", func(t *testing.T) {
		cli := commands.New(&mockApp{})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"deps", "a.ts", "b.ts"})

		assert.Error(t, cli.Execute(context.Background()))
	})
}

func TestCommands_ID(t *testing.T) {
	var capturedIDs []string
	mock := &mockApp{
		idFunc: func(_ context.Context, _ io.Writer, _ string, ids []string) error {
			capturedIDs = ids
			return nil
		},
	}

	cli := commands.New(mock)
	cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
	cli.SetArgs([]string{"id", "file:///app/main.ts"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, []string{"file:///app/main.ts"}, capturedIDs)
}

func TestCommands_Translate(t *testing.T) {
	var capturedSpecs []string
	mock := &mockApp{
		translateFunc: func(_ io.Writer, specs []string) error {
			capturedSpecs = specs
			return nil
		},
	}

	cli := commands.New(mock)
	cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
	cli.SetArgs([]string{"translate", "pkg:/react@18.2.0"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, []string{"pkg:/react@18.2.0"}, capturedSpecs)
}

func TestCommands_Clean(t *testing.T) {
	var capturedDir string
	mock := &mockApp{
		cleanFunc: func(_ context.Context, dir string) error {
			capturedDir = dir
			return nil
		},
	}

	cli := commands.New(mock)
	cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
	cli.SetArgs([]string{"clean", "--dir", "/elsewhere"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "/elsewhere", capturedDir)
}

func TestCommands_Version(t *testing.T) {
	cli := commands.New(&mockApp{})

	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), build.Version)
}
