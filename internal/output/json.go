package output

import (
	"encoding/json"
	"fmt"
	"os"

	"jobscout-engine/internal/domain"
)

func WriteJSON(path string, recs []domain.JobRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}
