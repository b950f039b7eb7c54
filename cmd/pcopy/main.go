// main.go -- pcopy: copy files and directories in parallel

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/opencoff/go-logger"
	"github.com/opencoff/go-pcopy"
	"github.com/opencoff/go-utils"
	flag "github.com/opencoff/pflag"
	"github.com/opencoff/shlex"
)

var Z = path.Base(os.Args[0])

// returned by parseArgs when the user asked for help
var errHelp = errors.New("help requested")

type config struct {
	workers  int
	sendfile bool
	chunk    *SizeValue
	noDeref  bool
	excludes []string
	verbose  bool
	logfile  string

	srcs []string
	dst  string
}

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Getenv("PCOPY_OPTS"), os.Stdout)
	if err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(0)
		}
		Die("%s", err)
	}

	if err = run(cfg); err != nil {
		for _, e := range pcopy.Failures(err) {
			Warn("%s", e)
		}
		os.Exit(1)
	}
}

// parse the command line; 'env' holds extra options that go before
// the command line args.
func parseArgs(args []string, env string, out io.Writer) (*config, error) {
	var help bool

	cfg := &config{
		chunk: NewSizeValue(1024 * 1048576),
	}

	fs := flag.NewFlagSet(Z, flag.ContinueOnError)
	fs.SetOutput(out)

	fs.BoolVarP(&help, "help", "h", false, "Show help and exit [False]")
	fs.IntVarP(&cfg.workers, "workers", "w", pcopy.DefaultWorkers, "Copy upto `N` files in parallel")
	fs.BoolVarP(&cfg.sendfile, "sendfile", "s", false, "Use the sendfile(2) fast path where possible [False]")
	fs.VarP(cfg.chunk, "chunk-size", "c", "Move at most `S` bytes per sendfile(2) call")
	fs.BoolVarP(&cfg.noDeref, "no-dereference", "P", false, "Copy symlinks as symlinks instead of following them [False]")
	fs.StringArrayVarP(&cfg.excludes, "exclude", "x", nil, "Skip entries whose name matches the glob `G`")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "Show verbose progress messages [False]")
	fs.StringVarP(&cfg.logfile, "log", "", "", "Write log messages to file `F` [STDOUT]")

	if len(env) > 0 {
		ev, err := shlex.Split(env)
		if err != nil {
			return nil, fmt.Errorf("PCOPY_OPTS: %w", err)
		}
		args = append(ev, args...)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if help {
		fmt.Fprintf(out, usageStr, Z, Z)
		fs.PrintDefaults()
		return nil, errHelp
	}

	av := fs.Args()
	if len(av) < 2 {
		return nil, fmt.Errorf("Usage: %s [options] SRC [SRC...] DST", Z)
	}

	if cfg.workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1; saw %d", cfg.workers)
	}

	cfg.srcs = av[:len(av)-1]
	cfg.dst = av[len(av)-1]
	return cfg, nil
}

// copy everything described in cfg
func run(cfg *config) error {
	opts := []pcopy.Option{
		pcopy.WithWorkers(cfg.workers),
		pcopy.WithFastCopy(cfg.sendfile),
		pcopy.WithChunkSize(int64(cfg.chunk.Value())),
		pcopy.WithExcludes(cfg.excludes...),
	}

	if cfg.noDeref {
		opts = append(opts, pcopy.WithSymlinks(pcopy.CopySymlinks))
	}

	log, err := makeLogger(cfg)
	if err != nil {
		return err
	}

	if log != nil {
		defer log.Close()
		opts = append(opts, pcopy.WithLogger(log))
	}

	start := time.Now()
	st, err := pcopy.Copy(cfg.dst, cfg.srcs, opts...)
	if log != nil {
		d := time.Since(start)
		log.Info("%d files, %d symlinks, %d new dirs; %s in %s",
			st.Files, st.Links, st.Dirs, utils.HumanizeSize(uint64(st.Bytes)), d)
	}
	return err
}

// we only log when asked to
func makeLogger(cfg *config) (logger.Logger, error) {
	if !cfg.verbose && len(cfg.logfile) == 0 {
		return nil, nil
	}

	prio := logger.LOG_INFO
	if cfg.verbose {
		prio = logger.LOG_DEBUG
	}

	fn := cfg.logfile
	if len(fn) == 0 {
		fn = "STDOUT"
	}

	log, err := logger.NewLogger(fn, prio, Z, logger.Ldate|logger.Ltime|logger.Lmicroseconds)
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", fn, err)
	}
	return log, nil
}

var usageStr = `%s - copy files and directories in parallel.

Sources are copied like "cp -r": if DST is an existing directory,
each SRC is copied into it; otherwise the single SRC is copied to DST.
Files are copied concurrently by a pool of workers. Every failure is
reported and the copy continues with the remaining files.

Extra options can be set in the environment variable PCOPY_OPTS.

Usage: %s [options] SRC [SRC...] DST

Options:
`
