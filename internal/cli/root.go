// Package cli is the command line surface over the repository operations.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webshop/internal/config"
	"webshop/internal/domain"
	"webshop/internal/repository"
)

// Store is the subset of the repository the commands drive.
type Store interface {
	Create(ctx context.Context, table string, fields domain.Fields) (repository.Result, error)
	Read(ctx context.Context, table string, opts repository.ReadOptions) ([]*domain.Row, error)
	Update(ctx context.Context, table string, fields domain.Fields, keyColumn string, keys []any, limit int) (repository.Result, error)
	Delete(ctx context.Context, table string, keyColumn string, keys []any, limit int) (repository.Result, error)
}

// Session is what a command needs once configuration is resolved.
type Session struct {
	Store  Store
	Retry  config.RetryConfig
	Logger *zap.Logger
	// Close releases the session resources; may be nil.
	Close func() error
}

// Opener builds a Session. configPath is the value of --config, possibly empty.
type Opener func(configPath string) (*Session, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format     string // "json" | "text"
	ConfigPath string

	open    Opener
	session *Session
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute runs the command line with os.Args and releases the session on
// every exit path.
func Execute(ctx context.Context, open Opener) error {
	opts := &RootOptions{open: open}
	defer func() { _ = opts.closeSession() }()
	return newRootCommand(opts).ExecuteContext(ctx)
}

func NewRootCommand(open Opener) *cobra.Command {
	return newRootCommand(&RootOptions{open: open})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "webshop",
		Short:         "Webshop data store",
		Long:          "Create, read, update and delete webshop rows with their business rules applied.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			s, err := opts.open(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("opening session: %w", err)
			}
			opts.session = s
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "optional YAML configuration file")

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewReadCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

func (o *RootOptions) closeSession() error {
	if o.session == nil || o.session.Close == nil {
		o.session = nil
		return nil
	}
	err := o.session.Close()
	o.session = nil
	return err
}

func (o *RootOptions) logger() *zap.Logger {
	if o.session == nil || o.session.Logger == nil {
		return zap.NewNop()
	}
	return o.session.Logger
}
