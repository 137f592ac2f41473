package main

import (
	"fmt"
	"os"

	"github.com/danmuck/ctrldash/internal/config"
	"github.com/spf13/cobra"
)

const defaultPath = "cmd/dashctl/config.toml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "configgen",
		Short:        "Write or validate dashctl config files",
		SilenceUsage: true,
	}

	var output string
	var force bool
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the dashctl config template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.WriteTemplate(output, force); err != nil {
				return err
			}
			cmd.Printf("Wrote dashctl config template to %s\n", output)
			return nil
		},
	}
	write.Flags().StringVarP(&output, "output", "o", defaultPath, "output path for the config template")
	write.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	var input string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate an existing dashctl config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(input)
			if err != nil {
				return err
			}
			cmd.Printf("Validated dashctl config at %s (%s:%d, %d layouts)\n", input, cfg.Host, cfg.Port, len(cfg.Layouts))
			return nil
		},
	}
	validate.Flags().StringVarP(&input, "input", "i", defaultPath, "config path to validate")

	root.AddCommand(write, validate)
	return root
}
