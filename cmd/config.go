package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Prints the merged configuration (file, environment, defaults) as YAML. Secrets are redacted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := *cfg
		if out.Anthropic.Key != "" {
			out.Anthropic.Key = "[redacted]"
		}
		if out.Mail.Password != "" {
			out.Mail.Password = "[redacted]"
		}

		data, err := yaml.Marshal(out)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
