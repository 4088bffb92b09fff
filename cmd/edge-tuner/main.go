package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"edge-tuner/internal/app"
	"edge-tuner/internal/config"
	"edge-tuner/internal/logger"
	"edge-tuner/internal/pipeline"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitUnreadable = 2

	usageLine = "usage: edge-tuner <image filename>"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitUsage
	}

	fs := flag.NewFlagSet("edge-tuner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ui := fs.String("ui", cfg.UI, "front-end: fyne or highgui")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", cfg.LogFormat, "log format: console or json")
	fill := fs.String("fill", "", "edge map fill colour as #rrggbb (default white)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usageLine)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, usageLine)
		return exitUsage
	}

	cfg.UI = strings.ToLower(*ui)
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	if *fill != "" {
		c, err := config.ParseColor(*fill)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		cfg.FillColor = c
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log := logger.New(stderr, cfg.LogFormat, logger.ParseLevel(cfg.LogLevel))
	application := app.NewApplication(cfg, log)

	path := fs.Arg(0)
	if err := application.Load(path); err != nil {
		application.Close()
		if errors.Is(err, pipeline.ErrImageUnreadable) {
			fmt.Fprintln(stderr, err)
			return exitUnreadable
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if err := application.Run(); err != nil {
		log.Error("Main", err, nil)
		return exitUsage
	}
	return exitOK
}
