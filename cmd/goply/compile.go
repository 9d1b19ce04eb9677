package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/maloki/goply/grammar"
	"github.com/maloki/goply/spec"
	"github.com/spf13/cobra"
)

var compileFlags = struct {
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Build the parsing tables from a grammar description",
		Example: `  goply compile grammar.json -o grammar-report.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	gspec, err := readGrammarSpec(args)
	if err != nil {
		return err
	}

	b := &grammar.Builder{
		Spec: gspec,
	}
	g, err := b.Build()
	if err != nil {
		return err
	}

	for _, w := range g.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	if n := g.SRConflictCount(); n > 0 {
		fmt.Fprintf(os.Stderr, "%v shift/reduce conflicts\n", n)
	}
	if n := g.RRConflictCount(); n > 0 {
		fmt.Fprintf(os.Stderr, "%v reduce/reduce conflicts\n", n)
	}

	out, err := json.MarshalIndent(g.Report(), "", "    ")
	if err != nil {
		return err
	}

	w := os.Stdout
	if *compileFlags.output != "" {
		f, err := os.OpenFile(*compileFlags.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("cannot create the report file %s: %w", *compileFlags.output, err)
		}
		defer f.Close()
		w = f
	}
	fmt.Fprintf(w, "%v\n", string(out))

	return nil
}

func readGrammarSpec(args []string) (*spec.GrammarSpec, error) {
	var src []byte
	if len(args) > 0 {
		var err error
		src, err = os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("cannot open the grammar description %s: %w", args[0], err)
		}
	} else {
		var err error
		src, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
	}

	gspec := &spec.GrammarSpec{}
	err := json.Unmarshal(src, gspec)
	if err != nil {
		return nil, err
	}

	return gspec, nil
}
