package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"armkin"
)

func ikCmd(a *app) *cobra.Command {
	var (
		target     string
		seed       string
		method     string
		multiStart int
		solutions  bool
		best       bool
		randSeed   uint64
	)
	cmd := &cobra.Command{
		Use:   "ik",
		Short: "Solve joint angles that place the end effector at a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			pose, err := parseTarget(target)
			if err != nil {
				return err
			}
			current, err := armkin.ParseJointVector(seed)
			if err != nil {
				return err
			}
			eng, cfg, err := a.engine()
			if err != nil {
				return err
			}
			ikCfg := cfg.IK
			if method != "" {
				ikCfg.Method = armkin.Method(method)
			}

			out := cmd.OutOrStdout()
			switch {
			case solutions && best:
				return fmt.Errorf("--solutions and --best are mutually exclusive")
			case solutions:
				ranked, err := eng.SolveIKMultipleSolutions(cmd.Context(), pose, current, cfg.MultiSolution, ikCfg)
				if err != nil {
					return err
				}
				return printJSON(out, ranked)
			case best:
				res, err := eng.SolveBest(cmd.Context(), pose, current, cfg.MultiSolution, ikCfg)
				if err != nil {
					return err
				}
				return printJSON(out, res)
			case multiStart > 1:
				res, err := eng.SolveIKMultiStart(pose, current, multiStart, ikCfg, randSource(randSeed))
				if err != nil {
					return err
				}
				return printJSON(out, res)
			default:
				res, err := eng.SolveIK(pose, current, ikCfg)
				if err != nil {
					return err
				}
				return printJSON(out, res)
			}
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "target position x,y,z in meters")
	cmd.Flags().StringVar(&seed, "seed", "", "starting joint angles, e.g. base=10,shoulder=-20")
	cmd.Flags().StringVar(&method, "method", "", "ik method: dls or ccd (default from config)")
	cmd.Flags().IntVar(&multiStart, "multistart", 1, "number of starts; values above 1 retry from random seeds")
	cmd.Flags().BoolVar(&solutions, "solutions", false, "print every distinct ranked solution")
	cmd.Flags().BoolVar(&best, "best", false, "print the top ranked solution")
	cmd.Flags().Uint64Var(&randSeed, "rand-seed", 0, "seed for random restarts; 0 picks a random seed")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
