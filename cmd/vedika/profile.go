package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vedika/internal/cli"
	"github.com/hyperjump/vedika/internal/keyword"
	"github.com/hyperjump/vedika/internal/models"
)

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved birth profiles",
	}
	cmd.AddCommand(
		a.profileAddCmd(),
		a.profileListCmd(),
		a.profileShowCmd(),
		a.profileRemoveCmd(),
		a.profileSearchCmd(),
		a.profileReindexCmd(),
	)
	return cmd
}

// withProfiles runs fn with the profile archive open.
func (a *app) withProfiles(fn func(c *components, format cli.OutputFormat) error) error {
	format, err := a.format()
	if err != nil {
		return err
	}
	c, err := a.setup(true)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c, format)
}

func (a *app) profileAddCmd() *cobra.Command {
	var in models.ProfileInput
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Save a birth profile",
		Example: `  vedika profile add --name Ravi --place Varanasi --time "1990-05-17 10:10" --tz Asia/Kolkata --lat 25.3 --lon 83.0`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProfiles(func(c *components, format cli.OutputFormat) error {
				p, err := c.profiles.Create(cmd.Context(), &in)
				if err != nil {
					return err
				}
				return cli.WriteProfile(a.out, p, format)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "profile name")
	f.StringVar(&in.Place, "place", "", "birth place")
	f.StringVar(&in.BirthTime, "time", "", "birth time, RFC 3339 or local \"2006-01-02 15:04\" in --tz")
	f.StringVar(&in.TimeZone, "tz", "", "IANA time zone for a local --time")
	f.Float64Var(&in.Latitude, "lat", 0, "birth latitude in degrees")
	f.Float64Var(&in.Longitude, "lon", 0, "birth longitude in degrees")
	f.StringVar(&in.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func (a *app) profileListCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved profiles by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProfiles(func(c *components, format cli.OutputFormat) error {
				list, err := c.profiles.List(cmd.Context(), offset, limit)
				if err != nil {
					return err
				}
				return cli.WriteProfiles(a.out, list, format)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many profiles")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of profiles (default 50)")
	return cmd
}

func (a *app) profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProfiles(func(c *components, format cli.OutputFormat) error {
				p, err := c.profiles.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return cli.WriteProfile(a.out, p, format)
			})
		},
	}
}

func (a *app) profileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a saved profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProfiles(func(c *components, _ cli.OutputFormat) error {
				if err := c.profiles.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Profile deleted: %s\n", args[0])
				return nil
			})
		},
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func (a *app) profileSearchCmd() *cobra.Command {
	var (
		limit int
		fuzzy bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search profiles by name, place and notes",
		Long:  "Query is all remaining arguments joined by spaces. When nothing matches, the search is retried with typo tolerance.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := buildSearchQuery(args)
			if query == "" {
				return cmd.Usage()
			}
			return a.withProfiles(func(c *components, format cli.OutputFormat) error {
				opts := &keyword.SearchOptions{NameBoost: 2, FuzzyEnabled: fuzzy}
				hits, err := c.profiles.Search(cmd.Context(), query, limit, opts)
				if err != nil {
					return err
				}
				if len(hits) == 0 && !fuzzy {
					opts.FuzzyEnabled = true
					if retry, err := c.profiles.Search(cmd.Context(), query, limit, opts); err == nil {
						hits = retry
					}
				}
				return cli.WriteHits(a.out, query, hits, format)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of results")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "enable fuzzy matching for typo tolerance")
	return cmd
}

func (a *app) profileReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the profile search index from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProfiles(func(c *components, _ cli.OutputFormat) error {
				n, err := c.profiles.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Reindexed %d profile(s)\n", n)
				return nil
			})
		},
	}
}
