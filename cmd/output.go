package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"journalflow/internal/errs"
)

// writeStructured prints value as json or yaml, or calls text for the default format.
func writeStructured(cmd *cobra.Command, value any, text func(w io.Writer) error) error {
	format, _ := cmd.Flags().GetString("output")
	out := cmd.OutOrStdout()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		if err := text(out); err != nil {
			return errs.Wrap(err, "write text output")
		}
		return nil
	case "json":
		raw, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return errs.Wrap(err, "encode json output")
		}
		if _, err := fmt.Fprintln(out, string(raw)); err != nil {
			return errs.Wrap(err, "write json output")
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return errs.Wrap(err, "write yaml output")
		}
		return errs.Wrap(enc.Close(), "close yaml output")
	default:
		return fmt.Errorf("unsupported output format %q (text|json|yaml)", format)
	}
}

func addOutputFlag(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().StringP("output", "o", "text", "Output format (text|json|yaml)")
	}
}

// decodeFile reads a json or yaml document into dst, picked by file extension.
func decodeFile(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrapf(err, "read %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, dst); err != nil {
			return errs.Wrapf(err, "decode json %s", path)
		}
	default:
		if err := yaml.Unmarshal(raw, dst); err != nil {
			return errs.Wrapf(err, "decode yaml %s", path)
		}
	}
	return nil
}

func printf(cmd *cobra.Command, format string, args ...any) error {
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...); err != nil {
		return errs.Wrap(err, "write command output")
	}
	return nil
}
