package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awaistahir/pvsizer/internal/catalog"
	"github.com/awaistahir/pvsizer/internal/climate"
	"github.com/awaistahir/pvsizer/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and import panels and inverters",
	}

	cmd.AddCommand(catalogListCmd())
	cmd.AddCommand(catalogImportCmd())
	cmd.AddCommand(catalogRemoveCmd())

	return cmd
}

func catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all known panels and inverters",
		RunE: func(cmd *cobra.Command, args []string) error {
			eq, st, err := openEquipment()
			if err != nil {
				return err
			}
			defer st.Close()

			panels, err := eq.Panels()
			if err != nil {
				return err
			}
			inverters, err := eq.Inverters()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s %-28s %7s %7s %7s %7s\n", "PANEL", "SOURCE", "MODEL", "W", "VMP", "VOC", "ISC")
			fmt.Fprintln(cmd.OutOrStdout(), "--------------------------------------------------------------------------------------------")
			for _, p := range panels {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s %-28s %7.0f %7.1f %7.1f %7.2f\n",
					p.ID, p.Source, truncate(p.Spec.Model, 28), p.Spec.PowerW, p.Spec.VmpV, p.Spec.VocV, p.Spec.IscA)
			}

			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s %-28s %6s %6s %11s %5s %6s\n", "INVERTER", "SOURCE", "MODEL", "KW", "VDC", "MPPT", "N", "IMAX")
			fmt.Fprintln(cmd.OutOrStdout(), "--------------------------------------------------------------------------------------------")
			for _, inv := range inverters {
				s := inv.Spec
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s %-28s %6.1f %6.0f %5.0f-%-5.0f %5d %6.1f\n",
					inv.ID, inv.Source, truncate(s.Model, 28), s.ACPowerKW, s.VdcMaxV, s.MPPTMinV, s.MPPTMaxV, s.MPPTCount, s.IMPPTMaxA)
			}

			return nil
		},
	}
}

func catalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import panels and inverters from a YAML catalog into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(args[0])
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range cat.PanelIDs() {
				p, _ := cat.Panel(id)
				if err := st.SavePanel(id, p); err != nil {
					return fmt.Errorf("saving panel %q: %w", id, err)
				}
				logger.Debug("panel imported", zap.String("id", id))
			}
			for _, id := range cat.InverterIDs() {
				inv, _ := cat.Inverter(id)
				if err := st.SaveInverter(id, inv); err != nil {
					return fmt.Errorf("saving inverter %q: %w", id, err)
				}
				logger.Debug("inverter imported", zap.String("id", id))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d panels and %d inverters\n", len(cat.PanelIDs()), len(cat.InverterIDs()))
			return nil
		},
	}
}

func catalogRemoveCmd() *cobra.Command {
	var inverter bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a saved panel (or inverter with --inverter)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if inverter {
				err = st.DeleteInverter(args[0])
			} else {
				err = st.DeletePanel(args[0])
			}
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w (built-in catalog entries cannot be removed)", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&inverter, "inverter", false, "remove an inverter instead of a panel")
	return cmd
}

func climateCmd() *cobra.Command {
	var lat, lon float64
	var years int
	var refresh bool

	cmd := &cobra.Command{
		Use:   "climate",
		Short: "Derive design temperatures for a site from historical weather",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("years") {
				years = cfg.Climate.Years
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if !refresh {
				if cached, err := st.GetCachedClimate(lat, lon, years); err == nil {
					logger.Debug("climate served from cache")
					return printJSON(cmd.OutOrStdout(), cached)
				}
			}

			timeout := time.Duration(cfg.Climate.TimeoutSeconds) * time.Second
			client := climate.NewClient(cfg.Climate.BaseURL, timeout)

			fmt.Fprintf(cmd.ErrOrStderr(), "Fetching %d years of history for %.4f, %.4f\n", years, lat, lon)
			temps, err := client.DesignTemperatures(context.Background(), lat, lon, years, time.Now())
			if err != nil {
				return fmt.Errorf("fetching climate data: %w", err)
			}
			if err := st.CacheClimate(lat, lon, years, temps); err != nil {
				logger.Warn("caching climate data failed", zap.Error(err))
			}
			return printJSON(cmd.OutOrStdout(), temps)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "site latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "site longitude")
	cmd.Flags().IntVar(&years, "years", 10, "calendar years of history to use")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")

	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved design runs",
	}

	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsDeleteCmd())

	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved runs")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%-36s %-24s %-20s %6s\n", "ID", "NAME", "CREATED", "GREEN")
			fmt.Fprintln(cmd.OutOrStdout(), "------------------------------------------------------------------------------------------")
			for _, r := range runs {
				green := "No"
				if r.AllGreen {
					green = "Yes"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s %-24s %-20s %6s\n", r.ID, truncate(r.Name, 24), r.CreatedAt.Local().Format("2006-01-02 15:04"), green)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), run)
		},
	}
}

func runsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteRun(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s\n", args[0])
			return nil
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
