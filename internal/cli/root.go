// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/common"
	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/spf13/cobra"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// StoreOpener opens the store the commands operate on.
type StoreOpener func(ctx context.Context) (service.Store, error)

// Deps are the collaborators the commands need.
type Deps struct {
	OpenStore StoreOpener
	Clock     func() time.Time
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	TZOffsetMinutes int
	Format          string
	Timeout         time.Duration

	deps Deps
}

// NewRootCommand creates the root command for challengectl.
func NewRootCommand(deps Deps) *cobra.Command {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	opts := &RootOptions{deps: deps}

	cmd := &cobra.Command{
		Use:   "challengectl",
		Short: "Operate habit challenge stats",
		Long: `Administrative commands for habit challenges.

Recompute or re-initialize participant stats and inspect a challenge
against the configured store (STORE_BACKEND and friends).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().IntVar(&opts.TZOffsetMinutes, "tz", common.GetEnvInt("DEFAULT_TZ_OFFSET_MINUTES", 0),
		"caller timezone offset in minutes east of UTC")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "overall command timeout")

	cmd.AddCommand(newRecalcCommand(opts))
	cmd.AddCommand(newRecalcAllCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newInitAllCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withEngine opens the store, runs fn and closes the store.
func (o *RootOptions) withEngine(cmd *cobra.Command, fn func(ctx context.Context, store service.Store, eng *engine.Engine) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.Timeout)
	defer cancel()

	store, err := o.deps.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	return fn(ctx, store, engine.New(store, store, store, engine.WithClock(o.deps.Clock)))
}

func (o *RootOptions) writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
