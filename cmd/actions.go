package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the available actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		only, _ := cmd.Flags().GetString("tab")

		found := false
		for _, tab := range a.reg.Tabs() {
			if only != "" && tab.ID != only {
				continue
			}
			found = true
			fmt.Printf("%s\n", tab.Title)
			for _, act := range a.reg.Actions(tab.ID) {
				var flags []string
				if act.Dangerous {
					flags = append(flags, "dangerous")
				}
				if act.RequiresTarget {
					flags = append(flags, "target")
				}
				if act.Interactive {
					flags = append(flags, "interactive")
				}
				line := fmt.Sprintf("  %-22s %s", act.ID, act.Description)
				if len(flags) > 0 {
					line += " [" + strings.Join(flags, ", ") + "]"
				}
				fmt.Println(line)
			}
			fmt.Println()
		}
		if !found {
			return fmt.Errorf("tab %q not found", only)
		}
		return nil
	},
}

func init() {
	actionsCmd.Flags().String("tab", "", "Only list actions of this tab")
	rootCmd.AddCommand(actionsCmd)
}
