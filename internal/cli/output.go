package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

func printOutput(w io.Writer, output string, v any) error {
	var (
		contents []byte
		err      error
	)
	switch output {
	case jsonFormat:
		contents, err = json.MarshalIndent(v, "", "  ")
		contents = append(contents, '\n')
	default:
		contents, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	_, err = w.Write(contents)
	return err
}
