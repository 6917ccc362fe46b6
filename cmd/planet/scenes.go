package main

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/planet-client-go/pkg/scenes"
	"github.com/spf13/cobra"
)

func newScenesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenes",
		Args:  cobra.NoArgs,
		Short: "Scene metadata and search",
	}

	cmd.AddCommand(
		newScenesGetCommand(a),
		newScenesSearchCommand(a),
	)

	return cmd
}

func newScenesGetCommand(a *app) *cobra.Command {
	var (
		sceneType string
		noAugment bool
	)

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print metadata of one scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := scenes.New(a.client)
			svc.AugmentLinks = !noAugment

			scene, err := svc.Get(cmd.Context(), scenes.Ref{Type: sceneType, ID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), scene)
		},
	}

	cmd.Flags().StringVar(&sceneType, "type", scenes.DefaultType, "scene type")
	cmd.Flags().BoolVar(&noAugment, "no-augment", false, "do not add the API key to resource links")

	return cmd
}

func newScenesSearchCommand(a *app) *cobra.Command {
	var (
		sceneType string
		count     int
		pages     int
		params    []string
		noAugment bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search scenes, one JSON scene per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := scenes.Query{Type: sceneType, Count: count}.Values()
			if err != nil {
				return err
			}
			for _, p := range params {
				key, value, ok := strings.Cut(p, "=")
				if !ok {
					return fmt.Errorf("invalid --param %q (want key=value)", p)
				}
				q.Add(key, value)
			}

			svc := scenes.New(a.client)
			svc.AugmentLinks = !noAugment

			page, err := svc.Search(cmd.Context(), q)
			for n := 1; ; n++ {
				if err != nil {
					return err
				}
				for i := range page.Data.Features {
					if err := printJSON(cmd.OutOrStdout(), &page.Data.Features[i]); err != nil {
						return err
					}
				}
				if n >= pages || !page.HasNext() {
					return nil
				}
				page, err = page.Next(cmd.Context())
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sceneType, "type", scenes.DefaultType, "scene type")
	flags.IntVar(&count, "count", 0, "scenes per page")
	flags.IntVar(&pages, "pages", 1, "number of pages to follow")
	flags.StringArrayVar(&params, "param", nil, "extra query parameter key=value (repeatable)")
	flags.BoolVar(&noAugment, "no-augment", false, "do not add the API key to resource links")

	return cmd
}
