package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/medterms/internal/app"
	"github.com/bobmcallan/medterms/internal/models"
	"github.com/bobmcallan/medterms/internal/services/glossary"
)

func openApp() (*app.App, error) {
	a, err := app.NewApp(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty terms file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.Terms.Init(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", a.Terms.Path())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", a.Terms.Path())
			}
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			terms, err := a.GlossaryService.ListTerms(cmd.Context())
			if err != nil {
				return err
			}
			return printTerms(cmd.OutOrStdout(), terms, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func browseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "browse [letter]",
		Short: "List terms starting with a letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			terms, err := a.GlossaryService.FindByLetter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTerms(cmd.OutOrStdout(), terms, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func searchCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search term names, abbreviations and synonyms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			terms, err := a.GlossaryService.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return printTerms(cmd.OutOrStdout(), terms, asJSON)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", glossary.DefaultSearchLimit, "maximum results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func showCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [slug]",
		Short: "Show one term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			term, err := a.GlossaryService.FindBySlug(ctx, args[0])
			if err != nil {
				return err
			}
			if term == nil {
				return fmt.Errorf("term %q not found", args[0])
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, term)
			}

			related, err := a.GlossaryService.ResolveRelated(ctx, term)
			if err != nil {
				return err
			}
			printTerm(out, term, related)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func addCmd() *cobra.Command {
	var input models.TermInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a term directly to the terms file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			term, err := a.GlossaryService.CreateTerm(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", term.Term, term.Slug)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&input.Term, "term", "", "display name (required)")
	f.StringVar(&input.Definition, "definition", "", "short definition (required)")
	f.StringVar(&input.Explanation, "explanation", "", "long explanation (required)")
	f.StringVar(&input.Abbreviations, "abbreviations", "", "comma-separated abbreviations")
	f.StringVar(&input.Synonyms, "synonyms", "", "comma-separated synonyms")
	f.StringVar(&input.Related, "related", "", "comma-separated related slugs")
	f.StringVar(&input.Roots, "roots", "", "comma-separated part:meaning pairs")
	f.StringVar(&input.References, "references", "", "comma-separated source|note pairs")
	return cmd
}

func printTerms(w io.Writer, terms []models.Term, asJSON bool) error {
	if asJSON {
		return writeJSON(w, terms)
	}
	if len(terms) == 0 {
		fmt.Fprintln(w, "No terms found")
		return nil
	}
	for _, t := range terms {
		fmt.Fprintf(w, "%-32s %s\n", t.Slug, t.Term)
	}
	return nil
}

func printTerm(w io.Writer, t *models.Term, related []models.RelatedTerm) {
	fmt.Fprintf(w, "%s\n%s\n\n", t.Term, strings.Repeat("=", len(t.Term)))
	fmt.Fprintf(w, "%s\n\n", t.Definition)

	for _, block := range glossary.RenderExplanation(t.Explanation) {
		if block.Type == models.BlockImage {
			fmt.Fprintf(w, "[%s] %s\n", block.Caption, block.URL)
			continue
		}
		var line strings.Builder
		for _, seg := range block.Segments {
			line.WriteString(seg.Text)
		}
		fmt.Fprintln(w, line.String())
	}

	if len(t.Abbreviations) > 0 {
		fmt.Fprintf(w, "\nAbbreviations: %s\n", strings.Join(t.Abbreviations, ", "))
	}
	if len(t.Synonyms) > 0 {
		fmt.Fprintf(w, "Synonyms: %s\n", strings.Join(t.Synonyms, ", "))
	}
	if len(t.Roots) > 0 {
		fmt.Fprintln(w, "Roots:")
		for _, r := range t.Roots {
			fmt.Fprintf(w, "  %s - %s\n", r.Part, r.Meaning)
		}
	}
	if len(related) > 0 {
		labels := make([]string, len(related))
		for i, r := range related {
			labels[i] = r.Label
		}
		fmt.Fprintf(w, "Related: %s\n", strings.Join(labels, ", "))
	}
	if len(t.References) > 0 {
		fmt.Fprintln(w, "References:")
		for _, r := range t.References {
			if r.Note != "" {
				fmt.Fprintf(w, "  %s (%s)\n", r.Source, r.Note)
			} else {
				fmt.Fprintf(w, "  %s\n", r.Source)
			}
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
