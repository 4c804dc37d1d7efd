// Command sheetrec reads and edits spreadsheet records from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ideamans/go-sheetrec"
	"github.com/ideamans/go-sheetrec/adapters/excel"
	"github.com/ideamans/go-sheetrec/adapters/googlesheets"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	backend    string
	keyFile    string
	subject    string
	dir        string
	configPath string
	columns    bool
	verbose    bool
	profile    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "sheetrec",
		Short: "Read and edit spreadsheet rows as records",
		Long: `sheetrec treats the first row of a sheet as field names and every
following row as a record. Records can be dumped as JSON lines, updated
field by field, or deleted.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
			log.SetFormatter(&log.TextFormatter{
				FullTimestamp: true,
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "sheets", "Backend: sheets or excel")
	flags.StringVar(&opts.keyFile, "key", "", "Service account JSON key (default: $GOOGLE_APPLICATION_CREDENTIALS)")
	flags.StringVar(&opts.subject, "subject", "", "User to impersonate with domain-wide delegation")
	flags.StringVar(&opts.dir, "dir", ".", "Workbook directory for the excel backend")
	flags.StringVarP(&opts.configPath, "config", "c", "", "TOML client configuration")
	flags.BoolVar(&opts.columns, "columns", false, "Records are laid out in columns")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output")
	flags.BoolVar(&opts.profile, "profile", false, "Print remote call statistics to stderr")

	rootCmd.AddCommand(
		newSheetsCmd(opts),
		newDumpCmd(opts),
		newSetCmd(opts),
		newDeleteCmd(opts),
	)
	return rootCmd
}

func (o *options) dimension() sheetrec.MajorDimension {
	if o.columns {
		return sheetrec.Columns
	}
	return sheetrec.Rows
}

func (o *options) newService(ctx context.Context) (sheetrec.Service, *sheetrec.Config, error) {
	switch o.backend {
	case "sheets":
		svc, err := googlesheets.NewWithJSONKeyFile(ctx, googlesheets.Config{Subject: o.subject}, o.keyFile)
		if err != nil {
			return nil, nil, err
		}
		return svc, googlesheets.DefaultClientConfig(), nil
	case "excel":
		svc, err := excel.New(&excel.Config{Dir: o.dir})
		if err != nil {
			return nil, nil, err
		}
		return svc, excel.DefaultClientConfig(), nil
	default:
		return nil, nil, fmt.Errorf("invalid backend: %s (must be sheets or excel)", o.backend)
	}
}

// openClient builds a client with an open session for the selected backend
func (o *options) openClient(ctx context.Context) (*sheetrec.Client, error) {
	svc, config, err := o.newService(ctx)
	if err != nil {
		return nil, err
	}
	if o.configPath != "" {
		if config, err = sheetrec.LoadConfig(o.configPath); err != nil {
			return nil, err
		}
	}
	config.Logger = log.StandardLogger()
	if o.profile {
		config.Profiling = true
	}

	client := sheetrec.New(svc, config)
	client.Open()
	return client, nil
}

func (o *options) closeClient(client *sheetrec.Client, cmd *cobra.Command) {
	if o.profile {
		if err := client.Session().ProfileDump(cmd.ErrOrStderr()); err != nil {
			log.WithError(err).Warn("Failed to write profile")
		}
	}
	client.Close()
}
