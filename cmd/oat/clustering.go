package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tilibit/oxdna/cluster"
)

var (
	clusterCpus   int
	clusterOutdir string
	clusterNoTraj bool
)

var clusteringCmd = &cobra.Command{
	Use:   "clustering datafile",
	Short: "split and summarize a clustered trajectory",
	Long: `clustering reads the JSON file written by the order-parameter pipeline,
with the cluster label of every configuration filled in by an external
clusterer (sklearn's DBSCAN, typically; -1 marks noise), and writes one
trajectory file and one centroid configuration per cluster, plus a scatter
plot of the clustering in order-parameter space.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		d, err := cluster.ReadData(args[0])
		if err != nil {
			return err
		}
		o := cluster.DefaultOptions()
		if clusterCpus > 0 {
			o.Cpus(clusterCpus)
		}
		if clusterOutdir != "" {
			o.Outdir(clusterOutdir)
		}
		o.NoTraj(clusterNoTraj)
		if err := cluster.Process(d, o); err != nil {
			return err
		}
		fmt.Printf("--- %f seconds ---\n", time.Since(start).Seconds())
		return nil
	},
}

func init() {
	clusteringCmd.Flags().IntVarP(&clusterCpus, "parallel", "p", 0, "goroutines to use (default all logical CPUs)")
	clusteringCmd.Flags().StringVarP(&clusterOutdir, "outdir", "o", "", "directory for the output files (default the working directory)")
	clusteringCmd.Flags().BoolVarP(&clusterNoTraj, "notraj", "t", false, "only plot, without splitting the trajectory or picking centroids")
	rootCmd.AddCommand(clusteringCmd)
}
