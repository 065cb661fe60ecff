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

package main

import (
	"flag"
	"io"

	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/workturnedplay/winpump/internal/logging"
)

// envPrefix: every flag can also be set as WINPUMP_<FLAG>, dashes turned
// into underscores.
const envPrefix = "WINPUMP"

type config struct {
	logLevel  zapcore.Level
	logFile   string
	logQueue  uint64
	instance  string
	machine   bool
	selfTest  bool
	hotkey    bool
	pauseExit bool
}

func parseConfig(args []string, output io.Writer) (config, error) {
	fs := flag.NewFlagSet("winpump", flag.ContinueOnError)
	fs.SetOutput(output)

	var cfg config
	level := fs.String("log-level", "info", "debug, info, warn or error")
	fs.StringVar(&cfg.logFile, "log-file", logging.DefaultFile, "log file, used when stderr is not a terminal")
	fs.Uint64Var(&cfg.logQueue, "log-queue", logging.DefaultQueueSize, "log entries buffered before new ones are dropped")
	fs.StringVar(&cfg.instance, "instance", "winpump_uniqueID_single_instance", "single instance mutex name; empty allows any number of instances")
	fs.BoolVar(&cfg.machine, "machine-wide", false, "make the single instance mutex span every session on the machine")
	fs.BoolVar(&cfg.selfTest, "selftest", false, "run the executor self-test, then exit")
	fs.BoolVar(&cfg.hotkey, "hotkey", true, "register Ctrl+Alt+Shift+F12, which runs work in a nested frame")
	fs.BoolVar(&cfg.pauseExit, "pause", false, "wait for Enter before exiting, when stdin is a console")
	fs.String("config", "", "config file of 'flag value' lines")

	err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix(envPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser))
	if err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, errors.Errorf("unexpected arguments: %q", fs.Args())
	}
	if err := cfg.logLevel.UnmarshalText([]byte(*level)); err != nil {
		return cfg, errors.Wrap(err, "-log-level")
	}
	return cfg, nil
}
