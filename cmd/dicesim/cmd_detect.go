package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psychodicenamic/dicesim/internal/game"
)

var singlesFlag bool

// detectCmd shows the insults in a roll
var detectCmd = &cobra.Command{
	Use:   "detect [face...]",
	Short: "Show the insults a roll offers",
	Long: `Runs the combo detector on the given faces.

Examples:
  dicesim detect 2 2 3 4 5 6
  dicesim detect 1,4 --singles`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

// archetypesCmd lists the catalog
var archetypesCmd = &cobra.Command{
	Use:   "archetypes",
	Short: "List the available archetypes",
	RunE:  runArchetypes,
}

func init() {
	detectCmd.Flags().BoolVar(&singlesFlag, "singles", false, "Offer leftover dice as Solid singles")
}

func parseFaces(args []string) ([]int, error) {
	var faces []int
	for _, arg := range args {
		for _, p := range strings.Split(arg, ",") {
			if p == "" {
				continue
			}
			f, err := strconv.Atoi(p)
			if err != nil || f < game.MinFace || f > game.MaxFace {
				return nil, fmt.Errorf("invalid face %q: must be 1-6", p)
			}
			faces = append(faces, f)
		}
	}
	return faces, nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	faces, err := parseFaces(args)
	if err != nil {
		return err
	}
	singles := rules.AllowSingleDieBanking || singlesFlag
	det := game.Detect(game.RollOf(faces...), singles)

	if jsonOutput {
		offers := []string{}
		for _, in := range det.Offers() {
			offers = append(offers, in.String())
		}
		return writeJSON(map[string]any{
			"offers":   offers,
			"residual": det.Residual.Faces(),
			"echo":     det.Echo(),
			"fumble":   det.Fumble,
		})
	}
	fmt.Println(renderDetection(det))
	return nil
}

func runArchetypes(cmd *cobra.Command, args []string) error {
	if jsonOutput {
		type entry struct {
			Number   int      `json:"number"`
			Name     string   `json:"name"`
			Health   int      `json:"health"`
			Dice     [][]int  `json:"dice"`
			Triggers []string `json:"triggers,omitempty"`
		}
		var out []entry
		for i, a := range catalog.All() {
			e := entry{Number: i + 1, Name: a.Name, Health: a.Health(rules), Triggers: a.Triggers}
			for _, d := range a.Dice {
				e.Dice = append(e.Dice, append([]int(nil), d.Faces[:]...))
			}
			out = append(out, e)
		}
		return writeJSON(out)
	}
	fmt.Println(renderArchetypes(catalog.All(), rules))
	return nil
}
