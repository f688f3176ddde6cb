package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/tilibit/oxdna/contact"
)

var (
	cmapCpus     int
	cmapPlotFile string
	cmapDataFile string
)

var contactMapCmd = &cobra.Command{
	Use:   "contact_map trajectory",
	Short: "mean distance between every pair of particles",
	Long: `contact_map averages, over the whole trajectory, the minimum-image
distance between every pair of particles, and writes the resulting matrix
in nanometers both as plain text and as a heat map.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		o := contact.DefaultOptions()
		if cmapCpus > 0 {
			o.Cpus(cmapCpus)
		}
		if !cmd.Flags().Changed("plot") {
			slog.Info("no plot file name given, using the default", "file", cmapPlotFile)
		}
		if !cmd.Flags().Changed("data") {
			slog.Info("no data file name given, using the default", "file", cmapDataFile)
		}
		m, err := contact.Map("", args[0], o)
		if err != nil {
			return err
		}
		if err := contact.WriteData(cmapDataFile, m); err != nil {
			return err
		}
		if err := contact.Plot(cmapPlotFile, m); err != nil {
			return err
		}
		fmt.Printf("--- %f seconds ---\n", time.Since(start).Seconds())
		return nil
	},
}

func init() {
	contactMapCmd.Flags().IntVarP(&cmapCpus, "parallel", "p", 0, "goroutines to use (default all logical CPUs)")
	contactMapCmd.Flags().StringVarP(&cmapPlotFile, "plot", "g", "contact_map.png", "file for the heat map")
	contactMapCmd.Flags().StringVarP(&cmapDataFile, "data", "d", "contact_map.txt", "file for the distance matrix")
	rootCmd.AddCommand(contactMapCmd)
}
