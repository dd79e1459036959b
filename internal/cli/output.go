package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"webshop/internal/dto"
)

// printResponse writes resp as a JSON document or as human readable text.
func printResponse(w io.Writer, format string, resp dto.OperationResponse) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(resp)
	}

	if resp.Error != nil {
		fmt.Fprintf(w, "Error! %s\n", resp.Error.Message)
		for _, d := range resp.Error.Details {
			fmt.Fprintf(w, "  %s: %s\n", d.Field, d.Message)
		}
		return nil
	}

	switch {
	case resp.Rows != nil:
		fmt.Fprintf(w, "Success! %d row(s) from %s\n", len(resp.Rows), resp.Table)
		for _, row := range resp.Rows {
			line, err := json.Marshal(row)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(line))
		}
	case resp.LastInsertID != 0:
		fmt.Fprintf(w, "Success! created %s row %d\n", resp.Table, resp.LastInsertID)
	case resp.RowsAffected != nil:
		fmt.Fprintf(w, "Success! %d row(s) affected in %s\n", *resp.RowsAffected, resp.Table)
	default:
		fmt.Fprintln(w, "Success!")
	}
	return nil
}
