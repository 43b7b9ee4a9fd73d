package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apodwall/internal/domain"
)

// execute runs the CLI against an in-memory store.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("WALLPAPER_DIR", t.TempDir())

	c := &cli{}
	root := c.rootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", t.TempDir()}, args...))

	err := root.ExecuteContext(context.Background())
	require.NoError(t, c.close())
	return out.String(), errOut.String(), err
}

func TestHistoryCommand_Empty(t *testing.T) {
	out, _, err := execute(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "History is empty.\n", out)
}

func TestHistoryClearCommand(t *testing.T) {
	out, _, err := execute(t, "history", "clear")
	require.NoError(t, err)
	assert.Equal(t, "History cleared.\n", out)
}

func TestCacheClearCommand(t *testing.T) {
	out, _, err := execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Cache cleared.\n", out)
}

func TestShowCommand_BadDate(t *testing.T) {
	_, errOut, err := execute(t, "show", "yesterday")
	assert.ErrorIs(t, err, errShown)
	assert.Equal(t, "Please use a date in the form YYYY-MM-DD.\n", errOut)
}

func TestShowCommand_RequiresDate(t *testing.T) {
	_, _, err := execute(t, "show")
	assert.Error(t, err)
}

func TestNotifyTestCommand_NotConfigured(t *testing.T) {
	_, errOut, err := execute(t, "notify", "test")
	assert.ErrorIs(t, err, errShown)
	assert.Equal(t, "Notifications are not enabled.\n", errOut)
}

func TestBotCommand_RequiresToken(t *testing.T) {
	_, _, err := execute(t, "bot")
	assert.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("MAX_HISTORY", "-1")
	c := &cli{}
	root := c.rootCommand()
	root.SetArgs([]string{"--config-dir", t.TempDir(), "history"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	assert.ErrorContains(t, err, "MAX_HISTORY")
	assert.NoError(t, c.close())
}

func TestPrintRecord(t *testing.T) {
	var buf bytes.Buffer
	printRecord(&buf, domain.Record{
		Date:        "2024-10-19",
		Title:       "Comet",
		Copyright:   "Jane Roe",
		MediaType:   domain.MediaImage,
		URL:         "https://apod.nasa.gov/a.jpg",
		HDURL:       "https://apod.nasa.gov/a_hd.jpg",
		Explanation: "A comet.",
	})
	assert.Equal(t, "2024-10-19\nComet\n© Jane Roe\nimage: https://apod.nasa.gov/a.jpg\nhd: https://apod.nasa.gov/a_hd.jpg\n\nA comet.\n", buf.String())
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []domain.HistoryEntry{
		{Record: domain.Record{Date: "2024-10-19", Title: "Comet", MediaType: domain.MediaImage}, AddedAt: time.Now()},
		{Record: domain.Record{Date: "2024-10-18", Title: "Eclipse", MediaType: domain.MediaVideo}, AddedAt: time.Now()},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-10-19  image  Comet", lines[0])
	assert.Equal(t, "2024-10-18  video  Eclipse", lines[1])
}
