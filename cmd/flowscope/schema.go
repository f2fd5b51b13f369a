package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/pondpilot/flowscope/model"
)

// loadSchema reads a JSON-encoded model.SchemaMetadata from path. An
// empty path means no schema was supplied, which analyzer.Analyze
// already treats as "resolve everything as implied" — that's not an
// error here either.
func loadSchema(path string) (*model.SchemaMetadata, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading schema file %s", path)
	}
	var schema model.SchemaMetadata
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, errors.Wrapf(err, "parsing schema file %s", path)
	}
	return &schema, nil
}

// readSQL returns the SQL text for an analyze/complete invocation:
// either the --sql flag verbatim, or the contents of --file.
func readSQL(sqlFlag, fileFlag string) (string, string, error) {
	if sqlFlag != "" {
		return sqlFlag, "", nil
	}
	if fileFlag == "" {
		return "", "", errors.New("one of --sql or --file is required")
	}
	data, err := os.ReadFile(fileFlag)
	if err != nil {
		return "", "", errors.Wrapf(err, "reading SQL file %s", fileFlag)
	}
	return string(data), fileFlag, nil
}

func writeOutput(out string, data []byte) error {
	if out == "" || out == "-" {
		_, err := os.Stdout.Write(data)
		if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
			_, err = os.Stdout.Write([]byte("\n"))
		}
		return err
	}
	return errors.Wrapf(os.WriteFile(out, data, 0o644), "writing output file %s", out)
}
