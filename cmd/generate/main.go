package main

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/edgelab-quant/priceaction/internal/sim"
	"github.com/edgelab-quant/priceaction/internal/strategy"
)

// main writes the JSON schema and a sample YAML for each configurable
// component into ./config, so editors with a yaml-language-server can
// validate config files in place.
func main() {
	targets := []struct {
		name   string
		title  string
		config any
	}{
		{"strategy-config", "Strategy Config", strategy.DefaultConfig()},
		{"continuation-config", "Continuation Strategy Config", strategy.DefaultContinuationConfig()},
		{"simulator-config", "Execution Simulator Config", sim.DefaultConfig()},
	}

	if err := os.MkdirAll("./config", 0755); err != nil {
		log.Fatalf("Failed to create config directory: %v", err)
	}

	for _, target := range targets {
		schemaJSON, err := strategy.GenerateSchemaJSON(target.config, target.title)
		if err != nil {
			log.Fatalf("Failed to generate schema for %s: %v", target.name, err)
		}

		schemaName := target.name + ".json"
		schemaPath := filepath.Join("./config", schemaName)

		if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
			log.Fatalf("Failed to write schema to file: %v", err)
		}

		samplePath := filepath.Join("./config", target.name+".yaml")
		if _, err := os.Stat(samplePath); os.IsNotExist(err) {
			yamlBytes, err := yaml.Marshal(target.config)
			if err != nil {
				log.Fatalf("Failed to marshal sample config for %s: %v", target.name, err)
			}

			yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

			if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
				log.Fatalf("Failed to write sample config to file: %v", err)
			}

			log.Printf("Sample config generated at %s", samplePath)
		}

		log.Printf("Schema generated at %s", schemaPath)
	}
}
