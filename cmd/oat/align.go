package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tilibit/oxdna/align"
	"github.com/tilibit/oxdna/traj/dat"
)

var (
	alignCpus     int
	alignIndex    string
	alignRef      string
	alignNoCenter bool
)

var alignCmd = &cobra.Command{
	Use:   "align trajectory outfile",
	Short: "superimpose every configuration on a reference",
	Long: `align minimizes the RMSD between each configuration of the trajectory
and a reference configuration (by default the first of the trajectory
itself), over all particles or over the ones listed in an index file, and
writes the aligned trajectory to outfile. Orientations are rotated along
with the positions.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		o := align.DefaultOptions()
		if alignCpus > 0 {
			o.Cpus(alignCpus)
		}
		if alignIndex != "" {
			indexes, err := align.ReadIndex(alignIndex)
			if err != nil {
				return err
			}
			o.Indexes(indexes)
		}
		if alignRef != "" {
			top, tr, err := dat.Describe("", alignRef)
			if err != nil {
				return err
			}
			confs, err := dat.GetConfs(top, tr, 0, 1)
			if err != nil {
				return err
			}
			o.Ref(confs[0])
		}
		o.Center(!alignNoCenter)
		if err := align.Trajectory(args[0], args[1], o); err != nil {
			return err
		}
		fmt.Printf("--- %f seconds ---\n", time.Since(start).Seconds())
		return nil
	},
}

func init() {
	alignCmd.Flags().IntVarP(&alignCpus, "parallel", "p", 0, "goroutines to use (default all logical CPUs)")
	alignCmd.Flags().StringVarP(&alignIndex, "index", "i", "", "index file with the particle ids to align on")
	alignCmd.Flags().StringVarP(&alignRef, "ref", "r", "", "file whose first configuration is the reference")
	alignCmd.Flags().BoolVarP(&alignNoCenter, "nocenter", "c", false, "do not center configurations in the box before aligning")
	rootCmd.AddCommand(alignCmd)
}
