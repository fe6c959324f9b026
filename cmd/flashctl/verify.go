package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flashkit/store"
)

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the directory and store layout for corruption",
		Long: `The verify command checks that every store is block aligned, inside the
chip and disjoint from the others, and that the on-chip directory agrees with
the stores loaded from it. Unusable directory slots are reported too.

Example:
  flashctl verify --image chip.img`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify()
		},
	}
}

// flattenValidation collects the *store.ValidationError values inside err.
func flattenValidation(err error) (found []*store.ValidationError, other []error) {
	if ve, ok := err.(*store.ValidationError); ok {
		return []*store.ValidationError{ve}, nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			f, o := flattenValidation(e)
			found, other = append(found, f...), append(other, o...)
		}
		return found, other
	}
	return nil, []error{err}
}

func runVerify() error {
	return withManager(true, func(m *store.Manager, t *target) error {
		err := m.Verify()
		if err == nil {
			if jsonOut {
				return printJSON(map[string]any{"valid": true, "problems": []any{}})
			}
			printInfo("%s %s: %d stores, no problems found\n", render(okStyle, "✓"), t.Source, len(m.Stores()))
			return nil
		}

		problems, other := flattenValidation(err)
		if len(other) > 0 {
			return errors.Join(other...)
		}
		if jsonOut {
			if err := printJSON(map[string]any{"valid": false, "problems": problems}); err != nil {
				return err
			}
		} else {
			for _, p := range problems {
				printInfo("%s %s\n", render(badStyle, "✗"), p.Error())
			}
		}
		return fmt.Errorf("%d problem(s) found", len(problems))
	})
}
