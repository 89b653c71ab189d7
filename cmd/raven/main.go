package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"raven/pkg/config"
	"raven/pkg/driver"
)

const (
	versionMajor = 0
	versionMinor = 1
	versionPatch = 0
)

var versionColor = color.New(color.FgCyan, color.Bold)

func main() {
	configPath := flag.String("config", "raven.toml", "path to a GC-tuning config file")
	gcStats := flag.Bool("gc-stats", false, "print heap stats after every collection")
	showVersion := flag.Bool("V", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		versionColor.Printf("Raven v%d.%d.%d\n", versionMajor, versionMinor, versionPatch)
		os.Exit(0)
	}
	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: raven [path]")
		os.Exit(64)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(64)
	}

	sess := driver.New(cfg)
	if *gcStats {
		sess.VM.OnGC(func(before, after uint64) {
			fmt.Fprintf(os.Stderr, "gc: %s -> %s\n", humanize.Bytes(before), humanize.Bytes(after))
		})
	}

	if flag.NArg() == 0 {
		repl(sess)
		return
	}
	runFile(sess, flag.Arg(0))
}

func repl(sess *driver.Session) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if ravenErr := sess.RunString(line); ravenErr != nil {
			driver.DisplayError(os.Stderr, ravenErr)
		}
	}
}

func runFile(sess *driver.Session, path string) {
	ravenErr, ioErr := sess.RunFile(path)
	if ioErr != nil {
		fmt.Fprintf(os.Stderr, "Could not read file %q: %s\n", path, ioErr)
		os.Exit(74)
	}
	if ravenErr == nil {
		os.Exit(0)
	}
	driver.DisplayError(os.Stderr, ravenErr)
	switch ravenErr.Kind() {
	case "Syntax", "Compile":
		os.Exit(65)
	case "Fatal":
		os.Exit(70)
	default: // "Runtime"
		os.Exit(70)
	}
}
