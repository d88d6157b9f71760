package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/moneypot/moneypot/pkg/allocation"
	"github.com/moneypot/moneypot/pkg/types"
)

// allocationFile is the YAML or JSON document read by `allocate --file`
type allocationFile struct {
	Target       string            `yaml:"target"`
	Participants []participantLine `yaml:"participants"`
}

type participantLine struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	MaxPledge string `yaml:"max_pledge"`
}

func (c *CLI) newAllocateCmd() *cobra.Command {
	var target string
	var file string
	var pledges []string

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Split a target across capped pledges",
		Long: `Run the allocation engine over an ad-hoc list of participants without
touching the ledger.

Participants come from --file (YAML or JSON) and/or repeated -p name=max flags.`,
		Example: `  moneypot allocate --target 120 -p alice=10 -p bob=100 -p cara=100
  moneypot allocate --file pledges.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAllocate(target, file, pledges)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "target amount")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with target and participants")
	cmd.Flags().StringArrayVarP(&pledges, "pledge", "p", nil, "participant as name=max (repeatable)")

	return cmd
}

func (c *CLI) runAllocate(targetFlag, file string, pledges []string) error {
	var doc allocationFile
	if file != "" {
		parsed, err := readAllocationFile(file)
		if err != nil {
			return err
		}
		doc = *parsed
	}
	if targetFlag != "" {
		doc.Target = targetFlag
	}
	if doc.Target == "" {
		return fmt.Errorf("a target amount is required (--target or target: in --file)")
	}

	target, err := decimal.NewFromString(doc.Target)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", doc.Target, err)
	}

	for _, p := range pledges {
		name, amount, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid pledge %q, expected name=max", p)
		}
		doc.Participants = append(doc.Participants, participantLine{Name: strings.TrimSpace(name), MaxPledge: amount})
	}

	participants := make([]types.Participant, 0, len(doc.Participants))
	for i, line := range doc.Participants {
		maxPledge, err := decimal.NewFromString(strings.TrimSpace(line.MaxPledge))
		if err != nil {
			return fmt.Errorf("participant %d: invalid max pledge %q: %w", i+1, line.MaxPledge, err)
		}
		id := line.ID
		if id == "" {
			id = line.Name
		}
		if id == "" {
			id = fmt.Sprintf("participant-%d", i+1)
		}
		participants = append(participants, types.Participant{ID: id, Name: line.Name, MaxPledge: maxPledge})
	}

	dist, err := allocation.Summarize("", participants, target)
	if err != nil {
		return err
	}

	renderDistribution(c.output, dist)
	return nil
}

// readAllocationFile accepts either a document with target and participants
// or a bare participant list. JSON parses as YAML.
func readAllocationFile(path string) (*allocationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read participants file: %w", err)
	}

	var doc allocationFile
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return &doc, nil
	}

	var lines []participantLine
	if err := yaml.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to parse participants file: %w", err)
	}
	return &allocationFile{Participants: lines}, nil
}
