package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-reels/internal/blobstore"
	"github.com/yourusername/race-reels/internal/ledger"
	"github.com/yourusername/race-reels/internal/models"
	"github.com/yourusername/race-reels/internal/service"
)

func newSightingsCmd() *cobra.Command {
	var eventID, bibID string

	cmd := &cobra.Command{
		Use:   "sightings",
		Short: "List the photos recorded for a bib",
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := models.ParseEventID(eventID)
			if err != nil {
				return err
			}
			bibID = strings.TrimSpace(bibID)
			if bibID == "" {
				return fmt.Errorf("--bib is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			ledgers, err := ledger.Open(ctx, cfg, appLogger)
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			defer ledgers.Close()

			filenames, err := ledgers.Sightings.QuerySightings(ctx, event.String(), bibID)
			if err != nil {
				return fmt.Errorf("failed to query sightings: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSightings(event.String(), filenames))
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventID, "event", "e", "", "Event id")
	cmd.Flags().StringVarP(&bibID, "bib", "b", "", "Bib number")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("bib")
	return cmd
}

// renderSightings lists filenames in binding order with their photo keys.
func renderSightings(eventID string, filenames []string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"#", "Filename", "Key"})

	sorted := service.BindingOrder(filenames)
	for i, name := range sorted {
		tw.AppendRow(table.Row{i + 1, name, blobstore.PhotoKey(eventID, models.PartitionProcessedImages, name)})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d photos", len(sorted)), ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
