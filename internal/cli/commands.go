package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/spf13/cobra"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List registered entities with their keys and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := rootOpts.Env(cmd.Context())
			if err != nil {
				return err
			}
			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			var all []any
			for _, name := range env.Registry.Entities() {
				d, err := env.Registry.Describe(name)
				if err != nil {
					return err
				}
				if out.Format == "json" {
					all = append(all, d)
					continue
				}
				indexes := make([]string, len(d.Indexes))
				for i, idx := range d.Indexes {
					indexes[i] = fmt.Sprintf("%s(%s)", idx.Name, strings.Join(compact(idx.Partition, idx.Sort), ","))
				}
				line := fmt.Sprintf("%s table=%s key=%s", d.Name, d.Table, strings.Join(d.KeyAttributes(), ","))
				if len(indexes) > 0 {
					line += " indexes=" + strings.Join(indexes, ",")
				}
				if len(d.SparseMaps) > 0 {
					line += " sparse=" + strings.Join(d.SparseMaps, ",")
				}
				out.Textf("%s", line)
			}
			if out.Format == "json" {
				return out.JSON(all)
			}
			return nil
		},
	}
}

func compact(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// queryFlags are the predicate and paging flags shared by explain and list.
type queryFlags struct {
	contains []string
	prefix   []string
	limit    int32
	token    string
	noScan   bool
}

func (f *queryFlags) register(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringArrayVar(&f.contains, "contains", nil, "attr=value filter: substring or set membership (repeatable)")
	cmd.Flags().StringArrayVar(&f.prefix, "prefix", nil, "attr=value filter: begins with (repeatable)")
	cmd.Flags().BoolVar(&f.noScan, "no-scan", false, "fail instead of scanning")
	if paging {
		cmd.Flags().Int32Var(&f.limit, "limit", 0, "page size")
		cmd.Flags().StringVar(&f.token, "token", "", "continue from a previous page")
	}
}

func (f *queryFlags) spec(entity string, args []string) (route.Spec, error) {
	constraints, err := parseAssignments(args)
	if err != nil {
		return route.Spec{}, err
	}
	spec := route.Spec{
		Entity:      entity,
		Constraints: constraints,
		Limit:       f.limit,
		PageToken:   f.token,
		NoScan:      f.noScan,
	}
	for _, pair := range []struct {
		args []string
		op   route.Op
	}{{f.contains, route.Contains}, {f.prefix, route.BeginsWith}} {
		for _, arg := range pair.args {
			attr, v, err := parseAssignment(arg)
			if err != nil {
				return route.Spec{}, err
			}
			spec.Predicates = append(spec.Predicates, route.Predicate{Attr: attr, Op: pair.op, Value: v})
		}
	}
	return spec, nil
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "explain <entity> [attr=value ...]",
		Short: "Show the access path a query would take",
		Long: `Show the access path a query would take, without reading anything.

A query with every primary key attribute is a key lookup. Otherwise the
first index (in registration order) whose partition attribute is given is
queried. Anything else scans the table.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := rootOpts.Env(cmd.Context())
			if err != nil {
				return err
			}
			spec, err := flags.spec(args[0], args[1:])
			if err != nil {
				return err
			}
			plan, err := env.Store.Explain(spec)
			if err != nil {
				return err
			}

			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if out.Format == "json" {
				return out.JSON(struct {
					Entity    string `json:"entity"`
					Path      string `json:"path"`
					Index     string `json:"index,omitempty"`
					Expensive bool   `json:"expensive"`
					Plan      string `json:"plan"`
				}{plan.Entity, plan.Kind.String(), plan.Index, plan.Expensive, plan.String()})
			}
			out.Textf("%s", plan)
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity> key=value...",
		Short: "Read one item by primary key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := rootOpts.Env(cmd.Context())
			if err != nil {
				return err
			}
			key, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			res, err := env.Store.Get(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr()).Item(res.Data, res.Degraded, res.Errors)
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "list <entity> [attr=value ...]",
		Short: "List items, routed by the given constraints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := rootOpts.Env(cmd.Context())
			if err != nil {
				return err
			}
			spec, err := flags.spec(args[0], args[1:])
			if err != nil {
				return err
			}

			var res store.Result[[]schema.Item]
			if len(spec.Constraints) == 0 && len(spec.Predicates) == 0 && !spec.NoScan {
				res, err = env.Store.List(cmd.Context(), spec.Entity,
					store.WithLimit(spec.Limit), store.WithPageToken(spec.PageToken))
			} else {
				res, err = env.Store.Query(cmd.Context(), spec)
			}
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr()).Items(res.Data, res.NextToken, res.Degraded, res.Errors)
		},
	}
	flags.register(cmd, true)
	return cmd
}

// NewPatchCommand creates the patch command.
func NewPatchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		sets   []string
		merges []string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "patch <entity> key=value... --set attr=value --merge attr.key=value",
		Short: "Apply a partial update to one item",
		Long: `Apply a partial update to one item.

--set replaces a whole attribute. --merge sets one sub-key of a sparse map
attribute, leaving its other sub-keys as stored. --dry-run prints the
compiled update expression without writing.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := rootOpts.Env(cmd.Context())
			if err != nil {
				return err
			}
			entity := args[0]
			key, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			d, err := env.Registry.Describe(entity)
			if err != nil {
				return err
			}

			b := patch.NewBuilder(d)
			for _, arg := range sets {
				attr, v, err := parseAssignment(arg)
				if err != nil {
					return err
				}
				b.Set(attr, v)
			}
			for _, arg := range merges {
				path, v, err := parseAssignment(arg)
				if err != nil {
					return err
				}
				attr, sub, ok := strings.Cut(path, ".")
				if !ok {
					return fmt.Errorf("invalid merge %q: want attr.key=value", arg)
				}
				b.Merge(attr, sub, v)
			}
			fields, err := b.Fields()
			if err != nil {
				return err
			}

			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if dryRun {
				k, err := attributevalue.MarshalMap(key)
				if err != nil {
					return err
				}
				prog, err := patch.Compile(d, k, fields, time.Now())
				if err != nil {
					return err
				}
				if out.Format == "json" {
					return out.JSON(struct {
						UpdateExpression string            `json:"updateExpression"`
						Names            map[string]string `json:"names"`
						Values           map[string]string `json:"values"`
					}{prog.Expression(), prog.Names, formatValues(prog)})
				}
				fmt.Fprint(out.Writer, prog.String())
				return nil
			}

			res, err := env.Store.Update(cmd.Context(), entity, key, fields)
			if err != nil {
				return err
			}
			return out.Item(res.Data, res.Degraded, res.Errors)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "attr=value to replace (repeatable)")
	cmd.Flags().StringArrayVar(&merges, "merge", nil, "attr.key=value to merge into a sparse map (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the compiled update without writing")
	return cmd
}

func formatValues(prog *patch.Program) map[string]string {
	out := make(map[string]string, len(prog.Values))
	for ph, v := range prog.Values {
		out[ph] = schema.FormatValue(v)
	}
	return out
}
