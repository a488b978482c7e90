package cmd

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
)

var (
	openapiCmd = &cobra.Command{
		RunE:  runOpenAPIValidate,
		Use:   "openapi",
		Short: "Validate the OpenAPI document under api/",
	}
	openapiPath string
)

func init() {
	openapiCmd.Flags().StringVar(&openapiPath, "file", "api/openapi.yml", "path to the OpenAPI document")
}

func runOpenAPIValidate(_ *cobra.Command, _ []string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openapiPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", openapiPath, err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return fmt.Errorf("%s is not a valid OpenAPI document: %w", openapiPath, err)
	}

	fmt.Printf("%s is valid (%d paths)\n", openapiPath, len(doc.Paths.Map()))
	return nil
}
