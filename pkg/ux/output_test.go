// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	assert.Equal(t, ModePlain, p.Mode())
	assert.False(t, IsTerminal(&buf))
	assert.Same(t, &buf, p.Writer())
}

func TestPrinter_PlainMode(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterWithMode(&buf, ModePlain)

	p.Title("ignored title")
	p.Muted("ignored muted")
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")
	p.Info("note")
	p.Row(IconBullet, []string{"a.tsx", "0"}, "approximate")
	p.Box("Root", "/tmp/x")
	p.Summary(Count{Label: "files", Value: 3}, Count{Label: "candidates", Value: 1})

	assert.Equal(t, strings.Join([]string{
		"OK: done",
		"WARN: careful",
		"ERROR: broken",
		"note",
		"a.tsx\t0\tapproximate",
		"Root: /tmp/x",
		"SUMMARY: files=3 candidates=1",
		"",
	}, "\n"), buf.String())
}

func TestPrinter_StyledModeContainsText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterWithMode(&buf, ModeStyled)

	p.Title("Candidates")
	p.Success("done")
	p.Row(IconArrow, []string{"a.tsx"}, "2 files")
	p.Summary(Count{Label: "files", Value: 3})

	out := buf.String()
	for _, want := range []string{"Candidates", "done", "a.tsx", "2 files", "files", string(IconSuccess)} {
		assert.Contains(t, out, want)
	}
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestWithSpinner_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterWithMode(&buf, ModePlain)

	err := p.WithSpinner("scanning", func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, "PROGRESS: scanning\nOK: scanning\n", buf.String())

	buf.Reset()
	boom := errors.New("boom")
	err = p.WithSpinner("scanning", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "ERROR: scanning: boom")
}

func TestSpinner_StyledStartStop(t *testing.T) {
	var buf safeBuffer
	p := NewPrinterWithMode(&buf, ModeStyled)

	s := p.NewSpinner("working")
	s.Start()
	s.Start()
	s.UpdateMessage("still working")
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Contains(t, buf.String(), "working")
	assert.True(t, strings.HasSuffix(buf.String(), "\r\033[K"))
}
