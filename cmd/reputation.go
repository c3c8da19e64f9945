package cmd

import (
	"fmt"

	"agora/config"
	"agora/core"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// catalogDocument mirrors the reputation section of config.yaml.
// yaml.v3 emits map keys sorted, so output is stable.
type catalogDocument struct {
	Reputation struct {
		SelfAcceptPolicy string         `yaml:"self_accept_policy" json:"selfAcceptPolicy"`
		Catalog          map[string]int `yaml:"catalog" json:"catalog"`
	} `yaml:"reputation" json:"reputation"`
}

func newReputationCmd() *cobra.Command {
	repCmd := &cobra.Command{
		Use:   "reputation",
		Short: "Inspect the reputation point table",
	}

	repCmd.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Print the effective reputation catalog as config YAML",
		Long: `Print the point table after configured overrides are applied. The
output can be pasted into config.yaml as a starting point.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			doc := buildCatalogDocument(cfg.ReputationCatalog(), cfg.SelfAcceptPolicy())

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), doc)
			}
			data, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to encode catalog: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return repCmd
}

func buildCatalogDocument(catalog core.ReputationCatalog, policy core.SelfAcceptPolicy) catalogDocument {
	var doc catalogDocument
	doc.Reputation.SelfAcceptPolicy = string(policy)
	doc.Reputation.Catalog = make(map[string]int, len(catalog))
	for action, delta := range catalog {
		doc.Reputation.Catalog[string(action)] = delta
	}
	return doc
}
