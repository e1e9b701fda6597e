package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newTestApp() *cli.App {
	return &cli.App{
		Name: "snipvec",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
			},
		},
		Before: setupLogger,
		Action: func(c *cli.Context) error { return nil },
	}
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			t.Run(level, func(t *testing.T) {
				err := newTestApp().Run([]string{"snipvec", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		err := newTestApp().Run([]string{"snipvec", "--log-level", "DeBuG"})
		require.NoError(t, err)
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newTestApp().Run([]string{"snipvec", "--log-level", "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("alias -l works", func(t *testing.T) {
		err := newTestApp().Run([]string{"snipvec", "-l", "warn"})
		require.NoError(t, err)
	})
}

func TestServiceFlags(t *testing.T) {
	flags := serviceFlags()

	byName := make(map[string]cli.Flag, len(flags))
	for _, flag := range flags {
		byName[flag.Names()[0]] = flag
	}

	t.Run("db is required", func(t *testing.T) {
		dbFlag, ok := byName["db"].(*cli.StringFlag)
		require.True(t, ok)
		assert.True(t, dbFlag.Required)
		assert.Contains(t, dbFlag.Aliases, "d")
	})

	t.Run("embedding-host has local default", func(t *testing.T) {
		hostFlag, ok := byName["embedding-host"].(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, "http://localhost:11434/v1", hostFlag.Value)
	})

	t.Run("retry defaults", func(t *testing.T) {
		retriesFlag, ok := byName["max-retries"].(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 3, retriesFlag.Value)
	})

	t.Run("chunk-size default", func(t *testing.T) {
		chunkFlag, ok := byName["chunk-size"].(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 800, chunkFlag.Value)
	})
}
