package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Sternrassler/planet-client-go/pkg/items"
	"github.com/spf13/cobra"
)

func newItemsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Args:  cobra.NoArgs,
		Short: "Item metadata and search",
	}

	cmd.AddCommand(
		newItemsGetCommand(a),
		newItemsSearchCommand(a),
	)

	return cmd
}

func newItemsGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get TYPE ID",
		Short: "Print metadata of one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := items.New(a.client).Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
}

func newItemsSearchCommand(a *app) *cobra.Command {
	var (
		types      []string
		filterFile string
		searchID   string
		limit      int
		pageSize   int
		sort       string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search items with a filter or a saved search, one JSON item per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := items.SearchOptions{
				Types: types,
				ID:    searchID,
				Query: items.Query{PageSize: pageSize, Sort: sort},
				Each: func(page []items.Item) error {
					for i := range page {
						if err := printJSON(cmd.OutOrStdout(), &page[i]); err != nil {
							return err
						}
					}
					return nil
				},
			}
			if limit >= 0 {
				opts.Limit = &limit
			}

			if filterFile != "" {
				data, err := os.ReadFile(filterFile)
				if err != nil {
					return fmt.Errorf("read filter: %w", err)
				}
				var filter json.RawMessage
				if err := json.Unmarshal(data, &filter); err != nil {
					return fmt.Errorf("parse filter %s: %w", filterFile, err)
				}
				opts.Filter = filter
			}

			_, err := items.New(a.client).Search(cmd.Context(), opts)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&types, "type", nil, "item type to search (repeatable)")
	flags.StringVar(&filterFile, "filter-file", "", "JSON file with the search filter")
	flags.StringVar(&searchID, "search-id", "", "saved search id (instead of --type and --filter-file)")
	flags.IntVar(&limit, "limit", -1, "maximum number of items (negative for no limit)")
	flags.IntVar(&pageSize, "page-size", 0, "items per page")
	flags.StringVar(&sort, "sort", "", "sort order, e.g. \"acquired desc\"")

	return cmd
}

func newItemTypesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "item-types [ID]",
		Short: "List all item types, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := items.New(a.client)

			if len(args) == 1 {
				t, err := svc.Type(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			}

			all, err := svc.Types(cmd.Context(), items.TypesOptions{})
			if err != nil {
				return err
			}
			for i := range all {
				if err := printJSON(cmd.OutOrStdout(), &all[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
