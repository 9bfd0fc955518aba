// sarc lists, prints and extracts the members of SARC archives.
//
// Archives may be raw, Yaz0-compressed or zstd-compressed, and may be given
// as a local path or an http(s) URL served with range request support.
//
// Usage:
//
//	sarc [-v] list [--digest] ARCHIVE
//	sarc [-v] cat ARCHIVE NAME
//	sarc [-v] extract [-o DIR] [--overwrite] [--workers N] ARCHIVE [NAME...]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"github.com/meigma/sarc"
	sarchttp "github.com/meigma/sarc/http"
)

const usage = `Usage:
  sarc [-v] list [--digest] ARCHIVE
  sarc [-v] cat ARCHIVE NAME
  sarc [-v] extract [-o DIR] [--overwrite] [--workers N] ARCHIVE [NAME...]

ARCHIVE is a file path or an http(s) URL.
`

// errUsage reports a malformed command line.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var verbose bool
	flagSet := pflag.NewFlagSet("sarc", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log decode details to stderr")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(stderr, usage)
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rest := flagSet.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "list", "ls":
		return runList(ctx, logger, cmdArgs, stdout, stderr)
	case "cat":
		return runCat(ctx, logger, cmdArgs, stdout, stderr)
	case "extract", "x":
		return runExtract(ctx, logger, cmdArgs, stdout, stderr)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runList(ctx context.Context, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	var withDigest bool
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.BoolVar(&withDigest, "digest", false, "print the sha256 digest of each entry")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("%w: list takes exactly one ARCHIVE", errUsage)
	}

	a, err := openArchive(ctx, logger, flagSet.Arg(0))
	if err != nil {
		return err
	}
	for e := range a.Entries() {
		if withDigest {
			fmt.Fprintf(stdout, "%10d  %s  %s\n", len(e.Data), sarcDigest(a, e.Name), e.Name)
			continue
		}
		fmt.Fprintf(stdout, "%10d  %08x  %s\n", len(e.Data), e.Hash, e.Name)
	}
	return nil
}

func sarcDigest(a *sarc.Archive, name string) string {
	d, err := a.Digest(name)
	if err != nil {
		return "-"
	}
	return d.String()
}

func runCat(ctx context.Context, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	flagSet := pflag.NewFlagSet("cat", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flagSet.NArg() != 2 {
		return fmt.Errorf("%w: cat takes ARCHIVE and NAME", errUsage)
	}

	a, err := openArchive(ctx, logger, flagSet.Arg(0))
	if err != nil {
		return err
	}
	e, ok := a.Entry(flagSet.Arg(1))
	if !ok {
		return fmt.Errorf("%w: %q", sarc.ErrKeyNotFound, flagSet.Arg(1))
	}
	_, err = stdout.Write(e.Data)
	return err
}

func runExtract(ctx context.Context, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	var (
		outDir    string
		overwrite bool
		workers   int
	)
	flagSet := pflag.NewFlagSet("extract", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&outDir, "output", "o", ".", "destination directory")
	flagSet.BoolVar(&overwrite, "overwrite", false, "overwrite existing files")
	flagSet.IntVar(&workers, "workers", 0, "parallel writers (0 = automatic, <0 = serial)")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flagSet.NArg() < 1 {
		return fmt.Errorf("%w: extract needs an ARCHIVE", errUsage)
	}

	a, err := openArchive(ctx, logger, flagSet.Arg(0))
	if err != nil {
		return err
	}

	opts := []sarc.CopyOption{
		sarc.CopyWithOverwrite(overwrite),
		sarc.CopyWithWorkers(workers),
	}
	var stats sarc.CopyStats
	if names := flagSet.Args()[1:]; len(names) > 0 {
		for _, name := range names {
			if !a.Contains(name) {
				return fmt.Errorf("%w: %q", sarc.ErrKeyNotFound, name)
			}
		}
		stats, err = a.CopyTo(outDir, names, opts...)
	} else {
		stats, err = a.CopyDir(outDir, ".", opts...)
	}
	if err != nil {
		return fmt.Errorf("extract to %s: %w", outDir, err)
	}

	fmt.Fprintf(stdout, "extracted %d files (%d bytes), skipped %d\n", stats.FileCount, stats.TotalBytes, stats.Skipped)
	return nil
}

// openArchive decodes a local path or an http(s) URL.
func openArchive(ctx context.Context, logger *slog.Logger, location string) (*sarc.Archive, error) {
	opts := []sarc.Option{sarc.WithLogger(logger)}
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return sarc.OpenFile(location, opts...)
	}

	src, err := sarchttp.NewSource(ctx, location)
	if err != nil {
		return nil, err
	}
	logger.Debug("remote archive", "url", location, "size", src.Size())
	a, err := sarc.ReadSource(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return a, nil
}
