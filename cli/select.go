package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/dialog"
)

var (
	selectOf    string
	selectIs    string
	selectValue string
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "List facts matching an entity/attribute/value pattern",
	Long:  "Runs an ArtifactSelector against the branch's current revision. Any of --of, --is, --value may be omitted to leave that slot unconstrained.",
	RunE:  runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectOf, "of", "", "constrain to this entity (hex or seed string)")
	selectCmd.Flags().StringVar(&selectIs, "is", "", "constrain to this attribute name")
	selectCmd.Flags().StringVar(&selectValue, "value", "", "constrain to this literal string value")
}

// resultLine is the JSON-lines shape select prints: one line per
// matching Fact.
type resultLine struct {
	Entity    string `json:"entity"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

func runSelect(cmd *cobra.Command, args []string) error {
	selector := dialog.ArtifactSelector{}
	if selectOf != "" {
		e := entityFromLine(selectOf)
		selector.Of = &e
	}
	if selectIs != "" {
		a, err := artifact.ParseAttribute(selectIs)
		if err != nil {
			return err
		}
		selector.Is = &a
	}
	if selectValue != "" {
		v := artifact.String(selectValue)
		selector.Value = &v
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	facts, err := store.Select(context.Background(), selector)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	for _, fact := range facts {
		if err := encoder.Encode(toResultLine(fact)); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d fact(s)\n", len(facts))
	return nil
}

func toResultLine(fact artifact.Fact) resultLine {
	return resultLine{
		Entity:    fact.Of.String(),
		Attribute: fact.Is.String(),
		Value:     valueToJSON(fact.Value),
	}
}

func valueToJSON(v artifact.Value) any {
	switch v.Kind {
	case artifact.TypeString:
		return v.Str
	case artifact.TypeBoolean:
		return v.Bool
	case artifact.TypeEntity:
		return v.Ent.String()
	case artifact.TypeUnsignedInt:
		return v.Uint.Lo
	case artifact.TypeSignedInt:
		return v.Sint.Lo
	case artifact.TypeFloat:
		return v.Float64
	case artifact.TypeSymbol:
		return v.Sym.String()
	default:
		return fmt.Sprintf("%x", v.Bin)
	}
}
