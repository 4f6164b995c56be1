package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/gribdef/internal/app"
)

// DefinitionPathEnv names the environment variable read when -defs is not given.
const DefinitionPathEnv = "GRIBDEF_DEFINITION_PATH"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return parse(args, output, os.Getenv)
}

func parse(args []string, output io.Writer, getenv func(string) string) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gribdef", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gribdef - A definition driven GRIB/BUFR message decoder.

Usage:
  gribdef [options] FILE
  gribdef -check [options]

Arguments:
  FILE
    Path to a single encoded message.

Options:
`)
		flagSet.PrintDefaults()
	}

	defsFlag := flagSet.String("defs", "", "Colon separated definition directories. Defaults to $"+DefinitionPathEnv+".")
	bootFlag := flagSet.String("boot", "", "Definition file every message starts from.")
	getFlag := flagSet.String("get", "", "Comma separated keys to print instead of a full dump.")
	partialFlag := flagSet.Bool("partial", false, "Stop quietly where a truncated message ends.")
	hiddenFlag := flagSet.Bool("hidden", false, "Include hidden keys in the dump.")
	checkFlag := flagSet.Bool("check", false, "Parse every definition file and exit.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	defsPath := *defsFlag
	if defsPath == "" {
		defsPath = getenv(DefinitionPathEnv)
	}

	input := ""
	if flagSet.NArg() > 0 {
		input = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "only one input file may be given"}
	}

	if input == "" && !*checkFlag {
		slog.Debug("No input file provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		DefinitionPath: defsPath,
		BootFile:       *bootFlag,
		InputPath:      input,
		Keys:           splitKeys(*getFlag),
		Partial:        *partialFlag,
		DumpHidden:     *hiddenFlag,
		CheckOnly:      *checkFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
