package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/spf13/cobra"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the speech engines and what each is missing",
	Long: paragraph(fmt.Sprintf("\n%s every engine's prerequisites. An engine with nothing missing can be selected and used right away.",
		keyword("Check"))),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := readEnvironment()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), e)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		active := a.store.Get().Engine
		if engineName != "" {
			active = engineName
		}
		writeEngineReport(cmd.Context(), cmd.OutOrStdout(), a.registry, active)
		return nil
	},
}

// engineChecker is the part of the registry the report needs.
type engineChecker interface {
	Descriptors() []tts.Descriptor
	CheckAvailability(ctx context.Context, name string) []string
}

func writeEngineReport(ctx context.Context, w io.Writer, reg engineChecker, active string) {
	var b strings.Builder
	b.WriteString(titleStyle("Speech engines"))
	b.WriteString("\n\n")

	for _, d := range reg.Descriptors() {
		marker := "  "
		if d.Name == active {
			marker = "› "
		}
		missing := reg.CheckAvailability(ctx, d.Name)
		if len(missing) == 0 {
			fmt.Fprintf(&b, "%s%s %s\n", marker, installedStyle("✓ "+d.Name), noteStyle("("+d.Format.String()+")"))
			continue
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker, missingStyle("✗ "+d.Name), noteStyle("("+d.Format.String()+")"))
		for _, m := range missing {
			fmt.Fprintf(&b, "      %s\n", m)
		}
	}
	fmt.Fprint(w, b.String())
}
