package main

import (
	"github.com/spf13/cobra"

	"armkin"
)

type planOutput struct {
	*armkin.Trajectory
	DurationSeconds float64 `json:"duration_seconds"`
}

func planCmd(a *app) *cobra.Command {
	var (
		start, end    string
		obstaclesFile string
		smooth        int
		scaleVelocity bool
		randSeed      uint64
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a collision-free joint trajectory between two configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := armkin.ParseJointVector(start)
			if err != nil {
				return err
			}
			to, err := armkin.ParseJointVector(end)
			if err != nil {
				return err
			}
			var obstacles []armkin.Obstacle
			if obstaclesFile != "" {
				if obstacles, err = armkin.LoadObstaclesFile(obstaclesFile); err != nil {
					return err
				}
			}
			eng, cfg, err := a.engine()
			if err != nil {
				return err
			}

			traj, err := eng.PlanTrajectory(cmd.Context(), from, to, obstacles, cfg.Planning, randSource(randSeed))
			if err != nil {
				return err
			}
			if smooth > 1 {
				traj = eng.SmoothChecked(traj, smooth, obstacles, cfg.Planning)
			}
			if scaleVelocity {
				if traj, err = eng.ScaleVelocity(traj, obstacles, cfg.Planning); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), planOutput{Trajectory: traj, DurationSeconds: traj.Duration().Seconds()})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start joint angles, e.g. base=-40,shoulder=20")
	cmd.Flags().StringVar(&end, "end", "", "goal joint angles")
	cmd.Flags().StringVar(&obstaclesFile, "obstacles", "", "YAML file listing obstacles")
	cmd.Flags().IntVar(&smooth, "smooth", 0, "moving average window applied to the planned path")
	cmd.Flags().BoolVar(&scaleVelocity, "scale-velocity", false, "slow down near obstacles")
	cmd.Flags().Uint64Var(&randSeed, "rand-seed", 0, "seed for the random planning stage; 0 picks a random seed")
	return cmd
}
