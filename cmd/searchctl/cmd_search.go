package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-estate-backend/internal/client"
	"github.com/tbourn/go-estate-backend/internal/search"
)

// stateView is what search-like commands print.
type stateView struct {
	State      string           `json:"state"`
	Query      string           `json:"query,omitempty"`
	Filters    *search.Filters  `json:"filters,omitempty"`
	Count      int              `json:"count"`
	Results    []client.Listing `json:"results"`
	Interacted bool             `json:"interacted"`
}

func printState(cmd *cobra.Command, g *globalEnv, o *client.Orchestrator) error {
	res := o.Results()
	if res == nil {
		res = []client.Listing{}
	}
	v := stateView{State: o.State().String(), Query: o.Query(), Count: len(res), Results: res}
	if f := o.Filters(); !f.IsZero() {
		v.Filters = &f
	}
	v.Interacted, _ = g.cache.Interacted()
	return printJSON(cmd, v)
}

// getSearchCmd returns the definition of the search command.
func getSearchCmd(g *globalEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Run a free-text search. Active filters are dropped.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.orchestrator()
			if err != nil {
				return err
			}
			err = o.SubmitQuery(cmd.Context(), strings.Join(args, " "))
			o.Wait()
			if err != nil {
				return err
			}
			return printState(cmd, g, o)
		},
	}
}

type filterEnv struct {
	propertyType string
	location     string
	price        string
	area         string
}

func bracketKeys(m map[string]search.Bracket) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, fmt.Sprintf("%q", k))
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func (f *filterEnv) filters() (search.Filters, error) {
	out := search.Filters{PropertyType: f.propertyType, Location: f.location}
	if f.price != "" {
		b, ok := search.PriceBrackets[f.price]
		if !ok {
			return out, fmt.Errorf("unknown price bracket %q; one of %s", f.price, bracketKeys(search.PriceBrackets))
		}
		out.Price = &b
	}
	if f.area != "" {
		b, ok := search.AreaBrackets[f.area]
		if !ok {
			return out, fmt.Errorf("unknown area bracket %q; one of %s", f.area, bracketKeys(search.AreaBrackets))
		}
		out.Area = &b
	}
	return out, nil
}

// getFilterCmd returns the definition of the filter command.
func getFilterCmd(g *globalEnv) *cobra.Command {
	env := &filterEnv{}
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Search by structured filters. The free-text query is dropped; no filters falls back to recommendations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := env.filters()
			if err != nil {
				return err
			}
			o, err := g.orchestrator()
			if err != nil {
				return err
			}
			err = o.SetFilters(cmd.Context(), f)
			o.Wait()
			if err != nil {
				return err
			}
			return printState(cmd, g, o)
		},
	}
	cmd.Flags().StringVar(&env.propertyType, "type", "", "Property type, e.g. คอนโด")
	cmd.Flags().StringVar(&env.location, "location", "", "Location, e.g. สุขุมวิท")
	cmd.Flags().StringVar(&env.price, "price", "", "Price bracket: "+bracketKeys(search.PriceBrackets))
	cmd.Flags().StringVar(&env.area, "area", "", "Area bracket: "+bracketKeys(search.AreaBrackets))
	return cmd
}

// getClearCmd returns the definition of the clear command.
func getClearCmd(g *globalEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all filters; without a free-text query this shows recommendations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.orchestrator()
			if err != nil {
				return err
			}
			if err := o.ClearFilters(cmd.Context()); err != nil {
				return err
			}
			return printState(cmd, g, o)
		},
	}
}

// getResetCmd returns the definition of the reset command.
func getResetCmd(g *globalEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the last results and filters. The session is kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.orchestrator()
			if err != nil {
				return err
			}
			if err := o.Reset(); err != nil {
				return err
			}
			return printState(cmd, g, o)
		},
	}
}

// getStateCmd returns the definition of the state command.
func getStateCmd(g *globalEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the locally cached search state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.orchestrator()
			if err != nil {
				return err
			}
			return printState(cmd, g, o)
		},
	}
}

// getHistoryCmd returns the definition of the history command.
func getHistoryCmd(g *globalEnv) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print your recorded searches (server-side, or --local).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.open(); err != nil {
				return err
			}
			if local {
				h, err := g.cache.LocalHistory()
				if err != nil {
					return err
				}
				return printJSON(cmd, h)
			}
			h, err := g.api.History(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, h)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Show the queries remembered on this machine")
	return cmd
}

// getPropertyCmd returns the definition of the property command.
func getPropertyCmd(g *globalEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "property <id>",
		Short: "Print one listing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.open(); err != nil {
				return err
			}
			l, err := g.api.Property(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, l)
		},
	}
}

type mapEnv struct {
	lat, lng, radius float64
	limit            int
}

// getMapCmd returns the definition of the map command.
func getMapCmd(g *globalEnv) *cobra.Command {
	env := &mapEnv{}
	cmd := &cobra.Command{
		Use:   "map",
		Short: "List properties around a point.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.open(); err != nil {
				return err
			}
			res, err := g.api.MapSearch(cmd.Context(), env.lat, env.lng, env.radius, env.limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().Float64Var(&env.lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&env.lng, "lng", 0, "Longitude")
	cmd.Flags().Float64Var(&env.radius, "radius", 0, "Radius in km (engine default when 0)")
	cmd.Flags().IntVar(&env.limit, "limit", 0, "Maximum results (engine default when 0)")
	must(cmd.MarkFlagRequired("lat"))
	must(cmd.MarkFlagRequired("lng"))
	return cmd
}
