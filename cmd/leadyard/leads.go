package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
)

func newLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect and update leads",
	}

	cmd.AddCommand(newLeadsListCmd())
	cmd.AddCommand(newLeadsShowCmd())
	cmd.AddCommand(newLeadsActionCmd("contacted", "Mark a lead as contacted", lead.ContactLead))
	cmd.AddCommand(newLeadsActionCmd("archive", "Archive a lead", lead.ArchiveLead))
	return cmd
}

func newLeadsListCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		oldest     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			leads, err := a.store.ListActive(cmd.Context(), limit, !oldest)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(leads) == 0 {
				fmt.Fprintln(out, "No active leads.")
				return nil
			}
			writeLeadTable(out, leads, a.cfg.Location())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of leads (0 for all)")
	cmd.Flags().BoolVar(&oldest, "oldest", false, "oldest first")
	return cmd
}

func newLeadsShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			writeLeadDetail(cmd.OutOrStdout(), l, a.cfg.Location())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	return cmd
}

type leadAction func(ctx context.Context, s lead.Store, pub events.Publisher, id uint) (*models.Lead, error)

func newLeadsActionCmd(use, short string, action leadAction) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := action(cmd.Context(), a.store, a.events, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lead #%d (%s): %s\n", l.ID, l.Name, use)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show lead statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notify.DigestMessage(st, a.cfg.Notify.Language).Text())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		configPath string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all leads as CSV",
		Long:  "Writes every lead, archived included, newest first, as CSV to stdout or --output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := lead.ExportCSV(cmd.Context(), a.store, w, a.cfg.Location())
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d leads to %s\n", n, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write CSV to this file instead of stdout")
	return cmd
}

func parseLeadID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid lead id %q", s)
	}
	return uint(id), nil
}

// writeLeadTable formats leads as an aligned table.
func writeLeadTable(w io.Writer, leads []models.Lead, loc *time.Location) {
	fmt.Fprintf(w, "%-6s %-5s %-20s %-16s %-18s %-16s %s\n",
		"ID", "TIER", "NAME", "PHONE", "SERVICE", "CREATED", "CONTACTED")
	for _, l := range leads {
		contacted := "-"
		if l.Contacted {
			contacted = "yes"
		}
		fmt.Fprintf(w, "%-6d %-5s %-20s %-16s %-18s %-16s %s\n",
			l.ID, l.Status, clip(l.Name, 20), clip(l.Phone, 16), clip(l.Service, 18),
			l.CreatedAt.In(loc).Format("2006-01-02 15:04"), contacted)
	}
}

// writeLeadDetail formats a single lead with full details.
func writeLeadDetail(w io.Writer, l *models.Lead, loc *time.Location) {
	fmt.Fprintf(w, "Lead #%d: %s [%s]\n", l.ID, l.Name, l.Status)
	fmt.Fprintf(w, "Phone: %s | Service: %s | Language: %s\n", l.Phone, l.Service, l.Language)
	if l.IdentityHandle != "" {
		fmt.Fprintf(w, "Handle: %s\n", l.IdentityHandle)
	}
	fmt.Fprintf(w, "Created: %s\n", l.CreatedAt.In(loc).Format("2006-01-02 15:04:05"))
	if l.Contacted && l.ContactedAt != nil {
		fmt.Fprintf(w, "Contacted: %s\n", l.ContactedAt.In(loc).Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(w, "Contacted: no")
	}
	fmt.Fprintf(w, "Reminders sent: first=%s second=%s\n", yesNo(l.FirstReminderSent), yesNo(l.SecondReminderSent))
	if l.Archived {
		fmt.Fprintln(w, "Archived: yes")
	}
	if l.Description != "" {
		fmt.Fprintf(w, "\n%s\n", l.Description)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
