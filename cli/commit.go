package cli

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

var (
	commitIssuer string
	commitInput  string
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Apply a stream of assert/retract instructions to the branch",
	Long:  "Reads newline-delimited JSON instructions from --input (or stdin) and commits them as one transaction, printing the resulting revision hash.",
	RunE:  runCommit,
}

func init() {
	commitCmd.Flags().StringVar(&commitIssuer, "issuer", "dialogctl", "issuer name recorded on the revision")
	commitCmd.Flags().StringVar(&commitInput, "input", "-", "path to a newline-delimited JSON instruction file, or - for stdin")
}

// instructionLine is the JSON-lines shape commit reads: one line per
// Instruction. Entity accepts either a 128-hex-char padded identifier
// or a plain string, hashed into an Entity via artifact.NewEntity.
type instructionLine struct {
	Kind      string     `json:"kind"`
	Entity    string     `json:"entity"`
	Attribute string     `json:"attribute"`
	Value     *valueLine `json:"value,omitempty"`
	Cause     []string   `json:"cause,omitempty"`
}

type valueLine struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func runCommit(cmd *cobra.Command, args []string) error {
	reader, closeReader, err := openInput(commitInput)
	if err != nil {
		return err
	}
	defer closeReader()

	var instructions []artifact.Instruction
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		instr, err := decodeInstructionLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		instructions = append(instructions, instr)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(instructions) == 0 {
		return fmt.Errorf("no instructions read from %s", commitInput)
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	revision, err := store.Commit(context.Background(), commitIssuer, instructions)
	if err != nil {
		return err
	}
	fmt.Println(revision.String())
	return nil
}

func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func decodeInstructionLine(raw []byte) (artifact.Instruction, error) {
	var line instructionLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return artifact.Instruction{}, err
	}

	entity := entityFromLine(line.Entity)
	cause := artifact.NewCause()
	for _, ref := range line.Cause {
		h, err := hash.Parse(ref)
		if err != nil {
			return artifact.Instruction{}, fmt.Errorf("cause %q: %w", ref, err)
		}
		cause.Add(h)
	}

	switch line.Kind {
	case "retract":
		attr, err := artifact.ParseAttribute(line.Attribute)
		if err != nil {
			return artifact.Instruction{}, err
		}
		return artifact.NewRetraction(entity, attr, cause), nil
	case "assert", "":
		attr, err := artifact.ParseAttribute(line.Attribute)
		if err != nil {
			return artifact.Instruction{}, err
		}
		if line.Value == nil {
			return artifact.Instruction{}, dialogerr.InvalidValue("assert instruction missing value")
		}
		value, err := decodeValueLine(*line.Value)
		if err != nil {
			return artifact.Instruction{}, err
		}
		return artifact.NewAssertion(artifact.Fact{Of: entity, Is: attr, Value: value}, cause), nil
	default:
		return artifact.Instruction{}, fmt.Errorf("unknown instruction kind %q", line.Kind)
	}
}

func entityFromLine(s string) artifact.Entity {
	if e, err := artifact.ParseEntity(s); err == nil {
		return e
	}
	return artifact.NewEntity([]byte(s))
}

func decodeValueLine(v valueLine) (artifact.Value, error) {
	switch v.Type {
	case "string":
		return artifact.String(v.Data), nil
	case "bytes":
		data, err := base64.StdEncoding.DecodeString(v.Data)
		if err != nil {
			return artifact.Value{}, err
		}
		return artifact.Bytes(data), nil
	case "boolean":
		b, err := strconv.ParseBool(v.Data)
		if err != nil {
			return artifact.Value{}, err
		}
		return artifact.Bool(b), nil
	case "entity":
		e := entityFromLine(v.Data)
		return artifact.OfEntity(e), nil
	case "uint":
		n, err := strconv.ParseUint(v.Data, 10, 64)
		if err != nil {
			return artifact.Value{}, err
		}
		return artifact.UnsignedInt(n), nil
	case "int":
		n, err := strconv.ParseInt(v.Data, 10, 64)
		if err != nil {
			return artifact.Value{}, err
		}
		return artifact.SignedInt(n), nil
	case "float":
		f, err := strconv.ParseFloat(v.Data, 64)
		if err != nil {
			return artifact.Value{}, err
		}
		return artifact.Float(f), nil
	case "record":
		data, err := base64.StdEncoding.DecodeString(v.Data)
		if err != nil {
			return artifact.Value{}, err
		}
		return artifact.Record(data), nil
	case "symbol":
		attr, err := artifact.ParseAttribute(v.Data)
		if err != nil {
			return artifact.Value{}, err
		}
		return artifact.Symbol(attr), nil
	default:
		return artifact.Value{}, fmt.Errorf("unknown value type %q", v.Type)
	}
}
