// Copyright 2026 workturnedplay
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging builds the zap logger used across winpump.
//
// Entries are written by a background worker so that code running inside a
// window procedure never waits on the console or the disk. When stderr is a
// terminal the log goes there, otherwise to a file next to the working
// directory.
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// TimeLayout is the timestamp layout written in front of every entry.
const TimeLayout = "Mon Jan 2 15:04:05.000000000 MST 2006"

// DefaultFile is where the log goes when stderr is not a terminal.
const DefaultFile = "winpump_debug.log"

// Config selects the level and destination of the log.
type Config struct {
	Level     zapcore.Level
	File      string // used when stderr is not a terminal; DefaultFile if empty
	QueueSize uint64 // 0 means DefaultQueueSize

	// Output, when set, replaces the stderr/file selection.
	Output io.Writer
}

// Logger is a zap logger plus the sink it writes through.
type Logger struct {
	*zap.Logger
	sink *Sink
	file *os.File
}

// New builds the logger described by cfg.
func New(cfg Config) (*Logger, error) {
	out := cfg.Output
	var file *os.File
	if out == nil {
		if StderrIsTerminal() {
			out = os.Stderr
		} else {
			name := cfg.File
			if name == "" {
				name = DefaultFile
			}
			f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, errors.Wrapf(err, "opening log file %q", name)
			}
			out, file = f, f
		}
	}

	sink := NewSink(out, cfg.QueueSize)
	core := zapcore.NewCore(newEncoder(), sink, zap.NewAtomicLevelAt(cfg.Level))
	return &Logger{
		Logger: zap.New(core, zap.AddCaller()),
		sink:   sink,
		file:   file,
	}, nil
}

func newEncoder() zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// Stats reports the sink counters.
func (l *Logger) Stats() Stats { return l.sink.Stats() }

// Close flushes every queued entry and closes the log file, if any.
// Entries logged after Close are dropped.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	l.sink.Close()
	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			l.file.Close()
			return errors.Wrap(err, "syncing log file")
		}
		return errors.Wrap(l.file.Close(), "closing log file")
	}
	return nil
}

// StderrIsTerminal reports whether stderr is attached to an interactive
// console.
func StderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// OrNop returns l, or a no-op logger when l is nil. Packages that take an
// optional logger use this for their default.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
