package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-herdform/pkg/herdfilter"
	"github.com/goliatone/go-herdform/pkg/render"
)

var listCmd = &cobra.Command{
	Use:   "list [name...]",
	Short: "Fetch and show lists (all when no name is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			// Load errors are kept in each view.
			if err := s.dash.LoadAll(ctx); err != nil {
				s.log.Debug("some lists failed to load", zap.Error(err))
			}
			names = s.dash.Lists()
		} else {
			for _, name := range names {
				if _, err := s.dash.Load(ctx, name); err != nil {
					s.log.Debug("list failed to load", zap.String("list", name), zap.Error(err))
				}
			}
		}
		for _, name := range names {
			view, err := s.dash.List(name)
			if err != nil {
				return err
			}
			if err := s.list(ctx, view); err != nil {
				return err
			}
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <list> <id>",
	Short: "Validate a row of the dry or calving preparation list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		name, id := args[0], args[1]
		if _, err := s.dash.Load(ctx, name); err != nil {
			return err
		}
		res, err := s.dash.Validate(ctx, name, id)
		if err != nil {
			return err
		}
		if err := s.list(ctx, res.List); err != nil {
			return err
		}
		if !res.Removed {
			return fmt.Errorf("%s: row %s was not validated", name, id)
		}
		return nil
	},
}

var herdCmd = &cobra.Command{
	Use:   "herd [filter]",
	Short: "Show the herd, optionally filtered by cow id",
	Long: `Shows the herd table. A filter starting with an integer keeps the cows whose
id contains it; any other filter lists the whole herd.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		input := ""
		if len(args) == 1 {
			input = args[0]
		}
		view, err := s.dash.Filter(ctx, input)
		if err != nil {
			return err
		}
		return s.list(ctx, view)
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter the herd interactively, one input per line",
	Long: `Reads filter inputs from standard input, one per line, and redraws the herd
table after each quiet period. Only the answer to the latest input is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if _, err := s.dash.Herd(ctx); err != nil {
			return err
		}
		if err := s.list(ctx, s.dash.HerdView()); err != nil {
			return err
		}
		return s.filterLoop(ctx, cmd.InOrStdin())
	},
}

// filterLoop feeds stdin lines to the filter controller until EOF.
func (s *session) filterLoop(ctx context.Context, in io.Reader) error {
	inputs := make(chan string)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(inputs)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case inputs <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	err := s.dash.RunFilter(ctx, inputs, func(res herdfilter.Result, view render.ListView) {
		if res.Err != nil {
			s.log.Warn("herd filter failed", zap.String("input", res.Input), zap.Error(res.Err))
			return
		}
		if err := s.list(ctx, view); err != nil {
			s.log.Warn("render herd", zap.Error(err))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
