// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/AccelByte/extend-habit-challenge/pkg/catalog"
	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/spf13/cobra"
)

func newRecalcCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <challenge-id> <user-id>",
		Short: "Recompute one participant up to today",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, _ service.Store, eng *engine.Engine) error {
				s, err := eng.Recompute(ctx, args[0], args[1], opts.TZOffsetMinutes)
				if err != nil {
					return err
				}
				return opts.printParticipants(cmd.OutOrStdout(), map[string]*stats.ParticipantStats{s.ParticipantID: s})
			})
		},
	}
}

func newRecalcAllCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc-all [challenge-id]",
		Short: "Recompute every member of a challenge, or every challenge",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, _ service.Store, eng *engine.Engine) error {
				if len(args) == 1 {
					result, err := eng.RecomputeAll(ctx, args[0], opts.TZOffsetMinutes)
					if err != nil {
						return err
					}
					return opts.printParticipants(cmd.OutOrStdout(), result)
				}
				result, err := eng.RecomputeEverything(ctx, opts.TZOffsetMinutes)
				if err != nil {
					return err
				}
				return opts.printBatch(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <challenge-id> [user-id]",
		Short: "Initialize (or resume) one participant or every member of a challenge",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, _ service.Store, eng *engine.Engine) error {
				if len(args) == 2 {
					s, err := eng.InitParticipant(ctx, args[0], args[1], opts.TZOffsetMinutes)
					if err != nil {
						return err
					}
					return opts.printParticipants(cmd.OutOrStdout(), map[string]*stats.ParticipantStats{s.ParticipantID: s})
				}
				result, err := eng.InitChallenge(ctx, args[0], opts.TZOffsetMinutes)
				if err != nil {
					return err
				}
				return opts.printParticipants(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newInitAllCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-all",
		Short: "Initialize every challenge that has members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, _ service.Store, eng *engine.Engine) error {
				result, err := eng.InitAll(ctx, opts.TZOffsetMinutes)
				if err != nil {
					return err
				}
				return opts.printBatch(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <challenge-id>",
		Short: "Show challenge schedule and participant stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, _ service.Store, eng *engine.Engine) error {
				result, err := eng.GetStats(ctx, args[0], opts.TZOffsetMinutes)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return opts.writeJSON(cmd.OutOrStdout(), result)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "challenge %s starts %s", result.ChallengeID, result.StartDate)
				if result.EndDate != nil {
					fmt.Fprintf(w, ", ends %s", *result.EndDate)
				}
				fmt.Fprintf(w, ", today %s\n", result.Today)
				return opts.printParticipants(w, result.PerParticipant)
			})
		},
	}
}

func newSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Create catalog challenges and initialize their members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := catalog.LoadConfig(args[0])
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, store service.Store, eng *engine.Engine) error {
				result, err := catalog.Seed(ctx, cfg, store, store, eng, opts.deps.Clock())
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return opts.writeJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created=%d existing=%d initialized=%d\n",
					result.Created, result.Existing, result.Initialized)
				return nil
			})
		},
	}
}

func (o *RootOptions) printParticipants(w io.Writer, participants map[string]*stats.ParticipantStats) error {
	if o.Format == "json" {
		return o.writeJSON(w, participants)
	}

	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTICIPANT\tSTATE\tCONFIRMED\tFAILED\tSTREAK\tNEG STREAK\tTODAY")
	for _, id := range ids {
		s := participants[id]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			id, s.LifecycleState, s.ConfirmedCount, s.FailCount, s.Streak, s.NegativeStreak, s.Today.Status)
	}
	return tw.Flush()
}

func (o *RootOptions) printBatch(w io.Writer, result *engine.BatchResult) error {
	if o.Format == "json" {
		return o.writeJSON(w, result)
	}

	fmt.Fprintf(w, "challenges=%d participants=%d failed=%d\n", result.Challenges, result.Participants, len(result.Failed))
	ids := make([]string, 0, len(result.Failed))
	for id := range result.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %s\n", id, result.Failed[id])
	}
	return nil
}
