package output

import (
	"encoding/json"
	"fmt"
	"os"
)

// DumpEffectiveConfig writes the device's effective configuration as JSON
// keyed by device name, e.g. {"CPU": {"NUM_STREAMS": "2", "AFFINITY": "CORE"}}.
func DumpEffectiveConfig(path, device string, settings map[string]string) error {
	doc := map[string]map[string]string{device: settings}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal effective config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write effective config: %w", err)
	}
	return nil
}

// DumpExecGraph writes the serialized executable graph to path.
func DumpExecGraph(path, graph string) error {
	if err := os.WriteFile(path, []byte(graph), 0o644); err != nil {
		return fmt.Errorf("write exec graph: %w", err)
	}
	return nil
}
