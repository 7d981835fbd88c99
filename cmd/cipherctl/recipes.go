package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/cipherkit/internal/cipher"
	"github.com/RowanDark/cipherkit/internal/logging"
)

func runRecipe(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("recipe", "", "recipe name or ID")
	var params paramFlags
	fs.Var(&params, "p", "parameter key=value for every step, or op.key=value for one; overrides saved values; repeatable")
	in := fs.String("in", "", "input text (default: stdin)")
	file := fs.String("file", "", "read input from file")
	out := fs.String("out", "", "write output to file")
	raw := fs.Bool("raw", false, "write output bytes unmodified")
	reverse := fs.Bool("reverse", false, "run the recipe backwards")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(stderr, "--recipe is required")
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	store, err := openRecipes(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	recipe, err := store.Get(*name)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}

	pipeline := &cipher.Pipeline{Steps: make([]cipher.Step, len(recipe.Pipeline.Steps))}
	for i, step := range recipe.Pipeline.Steps {
		merged := cipher.Params{}
		for k, v := range step.Params {
			merged[k] = v
		}
		for k, v := range params.forStep(step.Name) {
			merged[k] = v
		}
		pipeline.Steps[i] = cipher.Step{Name: step.Name, Params: merged}
	}
	if *reverse {
		if pipeline, err = pipeline.Reverse(); err != nil {
			fmt.Fprintf(stderr, "run: %v\n", err)
			return 1
		}
	}

	input, err := readInput(*in, *file)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	audit, err := openAudit(cfg, "cipherctl")
	if err != nil {
		fmt.Fprintf(stderr, "open audit log: %v\n", err)
		return 1
	}
	defer audit.Close()

	output, err := pipeline.Execute(context.Background(), input)
	_ = audit.Operation(cliSubject, "recipe:"+recipe.Name, len(input), len(output), err)
	if err != nil {
		fmt.Fprintf(stderr, "run %s: %v\n", recipe.Name, err)
		return 1
	}
	if err := writeOutput(output, *out, *raw); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func runRecipes(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "recipes subcommand required (list, show, save, delete)")
		return 2
	}
	switch args[0] {
	case "list":
		return runRecipesList(args[1:])
	case "show":
		return runRecipesShow(args[1:])
	case "save":
		return runRecipesSave(args[1:])
	case "delete":
		return runRecipesDelete(args[1:])
	default:
		fmt.Fprintf(stderr, "unknown recipes subcommand: %s\n", args[0])
		return 2
	}
}

func runRecipesList(args []string) int {
	fs := flag.NewFlagSet("recipes list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	query := fs.String("q", "", "only recipes whose name, description or tags contain this text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	store, err := openRecipes(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tBUILTIN\tID\tDESCRIPTION")
	for _, r := range store.Search(*query) {
		steps := make([]string, len(r.Pipeline.Steps))
		for i, s := range r.Pipeline.Steps {
			steps[i] = s.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", r.Name, strings.Join(steps, ","), r.Builtin, r.ID, r.Description)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(stderr, "write: %v\n", err)
		return 1
	}
	return 0
}

func runRecipesShow(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: cipherctl recipes show NAME|ID")
		return 2
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	store, err := openRecipes(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	r, err := store.Get(args[0])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		fmt.Fprintf(stderr, "encode recipe: %v\n", err)
		return 1
	}
	return 0
}

func runRecipesSave(args []string) int {
	fs := flag.NewFlagSet("recipes save", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "YAML recipe definition")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "--file is required")
		return 2
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(stderr, "read recipe: %v\n", err)
		return 1
	}
	var r cipher.Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		fmt.Fprintf(stderr, "parse recipe: %v\n", err)
		return 1
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if strings.TrimSpace(cfg.RecipesDir) == "" {
		fmt.Fprintln(stderr, "recipes_dir is not configured")
		return 1
	}
	store, err := openRecipes(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := store.Save(&r); err != nil {
		fmt.Fprintf(stderr, "save recipe: %v\n", err)
		return 1
	}

	if audit, err := openAudit(cfg, "cipherctl"); err == nil {
		_ = audit.Emit(logging.AuditEvent{
			Subject:   cliSubject,
			EventType: logging.EventRecipeSaved,
			Decision:  logging.DecisionInfo,
			Metadata:  map[string]any{"recipe_id": r.ID, "name": r.Name},
		})
		_ = audit.Close()
	}
	fmt.Fprintf(stdout, "saved recipe %s (%s)\n", r.Name, r.ID)
	return 0
}

func runRecipesDelete(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: cipherctl recipes delete NAME|ID")
		return 2
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	store, err := openRecipes(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := store.Delete(args[0]); err != nil {
		fmt.Fprintf(stderr, "delete recipe: %v\n", err)
		return 1
	}
	if audit, err := openAudit(cfg, "cipherctl"); err == nil {
		_ = audit.Emit(logging.AuditEvent{
			Subject:   cliSubject,
			EventType: logging.EventRecipeDeleted,
			Decision:  logging.DecisionInfo,
			Metadata:  map[string]any{"recipe": args[0]},
		})
		_ = audit.Close()
	}
	fmt.Fprintf(stdout, "deleted recipe %s\n", args[0])
	return 0
}
