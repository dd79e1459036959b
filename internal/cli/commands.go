package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webshop/internal/catalog"
	"webshop/internal/domain"
	"webshop/internal/dto"
	"webshop/internal/query"
	"webshop/internal/repository"
)

func NewCreateCommand(opts *RootOptions) *cobra.Command {
	var fieldsJSON string

	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Insert one row",
		Example: `  webshop create products --fields '{"prodCode":"WIDGET"}'
  webshop create price --fields '{"prodId":1,"netPrice":100,"VAT":20,"discount":10}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			fields, err := parseFields("fields", fieldsJSON)
			if err != nil {
				return err
			}
			return opts.run(cmd, "create", table, func(ctx context.Context, resp *dto.OperationResponse) error {
				res, err := opts.session.Store.Create(ctx, table, fields)
				if err != nil {
					return err
				}
				resp.RowsAffected = &res.RowsAffected
				resp.LastInsertID = res.LastInsertID
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fieldsJSON, "fields", "", "column values as a JSON object")
	_ = cmd.MarkFlagRequired("fields")
	return cmd
}

func NewReadCommand(opts *RootOptions) *cobra.Command {
	var (
		columns         []string
		whereJSON       string
		or              bool
		raw             string
		rawArgsJSON     string
		order           []string
		limit           int
		withProductCode bool
	)

	cmd := &cobra.Command{
		Use:   "read <table>",
		Short: "Select rows",
		Example: `  webshop read soldItem --fields sId,prodId --with-product-code
  webshop read price --where '{"prodId":1}' --order priceId:desc --limit 1
  webshop read soldItem --raw '` + "`prodQuant`" + ` > ?' --raw-args '[2]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			ro := repository.ReadOptions{
				Fields:          columns,
				Limit:           limit,
				WithProductCode: withProductCode,
			}
			if or {
				ro.Combinator = query.Or
			}

			var err error
			if whereJSON != "" {
				if ro.Where, err = parseFields("where", whereJSON); err != nil {
					return err
				}
			}
			if raw != "" {
				ro.Raw = &query.Raw{SQL: raw}
				if rawArgsJSON != "" {
					if err := json.Unmarshal([]byte(rawArgsJSON), &ro.Raw.Args); err != nil {
						return fmt.Errorf("invalid --raw-args JSON: %w", err)
					}
				}
			}
			if ro.OrderBy, err = parseOrder(order); err != nil {
				return err
			}

			return opts.run(cmd, "read", table, func(ctx context.Context, resp *dto.OperationResponse) error {
				rows, err := opts.session.Store.Read(ctx, table, ro)
				if err != nil {
					return err
				}
				resp.Rows = rows
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&columns, "fields", nil, "columns to select (default all)")
	cmd.Flags().StringVar(&whereJSON, "where", "", "column = value filters as a JSON object")
	cmd.Flags().BoolVar(&or, "or", false, "join --where filters with OR instead of AND")
	cmd.Flags().StringVar(&raw, "raw", "", "placeholder-only predicate, used instead of --where")
	cmd.Flags().StringVar(&rawArgsJSON, "raw-args", "", "placeholder values for --raw as a JSON array")
	cmd.Flags().StringSliceVar(&order, "order", nil, "sort columns, column or column:desc")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (0 for no limit)")
	cmd.Flags().BoolVar(&withProductCode, "with-product-code", false, "attach the product code as productName")
	return cmd
}

func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		fieldsJSON string
		key        string
		ids        []string
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "update <table>",
		Short:   "Update rows selected by key",
		Example: `  webshop update warranty --fields '{"warrTimeSpan":24}' --ids 1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			fields, err := parseFields("fields", fieldsJSON)
			if err != nil {
				return err
			}
			keyColumn := keyOrPrimary(table, key)
			return opts.run(cmd, "update", table, func(ctx context.Context, resp *dto.OperationResponse) error {
				res, err := opts.session.Store.Update(ctx, table, fields, keyColumn, toKeys(ids), limit)
				if err != nil {
					return err
				}
				resp.RowsAffected = &res.RowsAffected
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fieldsJSON, "fields", "", "column values as a JSON object")
	cmd.Flags().StringVar(&key, "key", "", "key column (default the primary key)")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "key values")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (0 for no limit)")
	_ = cmd.MarkFlagRequired("fields")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	var (
		key   string
		ids   []string
		limit int
	)

	cmd := &cobra.Command{
		Use:     "delete <table>",
		Short:   "Delete rows selected by key",
		Example: `  webshop delete soldItem --ids 4,5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			keyColumn := keyOrPrimary(table, key)
			return opts.run(cmd, "delete", table, func(ctx context.Context, resp *dto.OperationResponse) error {
				res, err := opts.session.Store.Delete(ctx, table, keyColumn, toKeys(ids), limit)
				if err != nil {
					return err
				}
				resp.RowsAffected = &res.RowsAffected
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "key column (default the primary key)")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "key values")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (0 for no limit)")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

// run executes op with conflict retry and prints the outcome. A failed
// operation is printed and also returned so the process exits non-zero.
func (o *RootOptions) run(cmd *cobra.Command, operation, table string, op func(ctx context.Context, resp *dto.OperationResponse) error) error {
	traceID := uuid.NewString()
	logger := o.logger().With(zap.String("traceId", traceID))

	maxAttempts := 1
	if o.session.Retry.MaxAttempts > 0 {
		maxAttempts = o.session.Retry.MaxAttempts
	}

	resp := dto.OperationResponse{TraceID: traceID, Status: dto.StatusOK, Operation: operation, Table: table}
	attempts, err := withRetry(cmd.Context(), maxAttempts, logger, func(ctx context.Context) error {
		return op(ctx, &resp)
	})
	if err != nil {
		resp = dto.NewFailure(traceID, operation, table, err)
	}
	resp.Attempts = attempts
	resp.Timestamp = time.Now().UTC()

	if perr := printResponse(cmd.OutOrStdout(), o.Format, resp); perr != nil {
		return perr
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", operation, table, err)
	}
	return nil
}

func parseFields(flag, raw string) (domain.Fields, error) {
	var fields domain.Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("invalid --%s JSON: %w", flag, err)
	}
	if fields == nil {
		fields = domain.Fields{}
	}
	return fields, nil
}

func parseOrder(specs []string) ([]query.Order, error) {
	var out []query.Order
	for _, s := range specs {
		field, dir, _ := strings.Cut(s, ":")
		switch strings.ToLower(dir) {
		case "", "asc":
			out = append(out, query.Asc(field))
		case "desc":
			out = append(out, query.Desc(field))
		default:
			return nil, fmt.Errorf("invalid --order %q: direction must be asc or desc", s)
		}
	}
	return out, nil
}

// keyOrPrimary falls back to the table's primary key. Unknown tables keep
// the empty key and are rejected by the repository.
func keyOrPrimary(table, key string) string {
	if key != "" {
		return key
	}
	if t, err := catalog.Default().Table(table); err == nil {
		return t.PrimaryKey
	}
	return ""
}

func toKeys(ids []string) []any {
	keys := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = id
	}
	return keys
}
