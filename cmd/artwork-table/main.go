package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/artwork-table/internal/config"
	"github.com/Sternrassler/artwork-table/internal/tui"
	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/metrics"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artwork-table",
		Short: "Browse and select artworks from the Art Institute of Chicago",
		Long: `artwork-table shows the public artwork catalog one page at a time.

Rows stay selected while you page through the catalog, and "select top N"
selects the first N artworks in catalog order.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: runTUI,
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newPageCmd(), newTopCmd())
	return cmd
}

func loadApp(cmd *cobra.Command, logPath string) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newApp(cmd.Context(), cfg, logPath)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the UI; logs only go to a configured file.
	a, err := loadApp(cmd, "")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if a.cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.cfg.Metrics.Addr, a.ready, a.logger); err != nil {
				a.logger.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	model := tui.New(ctx, a.newTable(), a.client)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func newPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page [number]",
		Short: "Print one page of the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid page number %q", args[0])
				}
				p = n
			}

			a, err := loadApp(cmd, "-")
			if err != nil {
				return err
			}
			defer a.Close()

			tbl := a.newTable()
			if _, err := tbl.LoadPage(cmd.Context(), a.client, p); err != nil {
				return err
			}
			cur := tbl.Current()

			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d records)\n", cur.Page, cur.TotalPages, cur.Total)
			return printRecords(cmd.OutOrStdout(), cur.Records)
		},
	}
}

func newTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top [count]",
		Short: "Select the first N artworks and print the selection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, "-")
			if err != nil {
				return err
			}
			defer a.Close()

			n := a.cfg.Table.TopNDefault
			if len(args) == 1 {
				if n, err = strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("invalid count %q", args[0])
				}
			}

			tbl := a.newTable()
			tbl.OpenDialog()
			selected, err := tbl.SubmitTopN(cmd.Context(), n)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Selected %d artworks\n", selected)
			return printRecords(cmd.OutOrStdout(), tbl.SelectedRecords())
		},
	}
}

func printRecords(w io.Writer, records []artwork.Record) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		end := "-"
		if rec.DateEnd != nil {
			end = strconv.Itoa(*rec.DateEnd)
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Title,
			rec.ArtistDisplay,
			rec.PlaceOfOrigin,
			strconv.Itoa(rec.DateStart),
			end,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Title", "Artist", "Origin", "Start", "End").
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}
