package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/ossyrian/unwx/internal/parser"
	"github.com/ossyrian/unwx/internal/wxapkg"
)

var listCmd = &cobra.Command{
	Use:   "list <input>",
	Short: "List the files in a .wxapkg package without unpacking it",
	Args:  cobra.ExactArgs(1),
	RunE:  list,
}

func init() {
	listCmd.Flags().StringP("format", "f", "table", "output format (table, json, yaml)")
	listCmd.Flags().Bool("digest", false, "include a BLAKE3 digest of each file")

	viper.BindPFlag("format", listCmd.Flags().Lookup("format"))
	viper.BindPFlag("digest", listCmd.Flags().Lookup("digest"))
}

// listing is one row of list output
type listing struct {
	Index  int    `json:"index" yaml:"index"`
	Name   string `json:"name" yaml:"name"`
	Offset uint32 `json:"offset" yaml:"offset"`
	Size   uint32 `json:"size" yaml:"size"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

func list(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig(args)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger := slog.With("input", cfg.InputFile)

	archive, err := loadArchive(cfg, logger)
	if err != nil {
		return err
	}

	rows, err := buildListing(archive, cfg.Digest, logger)
	if err != nil {
		return err
	}

	return writeListing(os.Stdout, rows, cfg.Format)
}

// buildListing decodes the whole file table of archive
func buildListing(archive *wxapkg.Archive, digest bool, logger *slog.Logger) ([]listing, error) {
	d, err := parser.NewDecoder(archive, logger)
	if err != nil {
		return nil, err
	}

	var rows []listing
	for {
		entry, err := d.NextEntry()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		f := archive.Resolve(entry)
		row := listing{
			Index:  f.Index,
			Name:   f.Name,
			Offset: entry.Data.Offset,
			Size:   entry.Data.Length,
		}
		if digest {
			sum := blake3.Sum256(f.Data)
			row.Digest = hex.EncodeToString(sum[:])
		}
		rows = append(rows, row)
	}
}

// writeListing renders rows in the given format
func writeListing(w io.Writer, rows []listing, format string) error {
	switch format {
	case "", "table":
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		withDigest := len(rows) > 0 && rows[0].Digest != ""
		if withDigest {
			fmt.Fprintln(tw, "INDEX\tNAME\tOFFSET\tSIZE\tBLAKE3")
		} else {
			fmt.Fprintln(tw, "INDEX\tNAME\tOFFSET\tSIZE")
		}
		for _, r := range rows {
			if withDigest {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", r.Index, r.Name, r.Offset, r.Size, r.Digest)
			} else {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", r.Index, r.Name, r.Offset, r.Size)
			}
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []listing{}
		}
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}
