package output_test

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/wpgh/internal/output"
	"github.com/blackwell-systems/wpgh/internal/store"
)

// Example showing how to render the run history table
func ExampleRenderRunTable() {
	runs := []*store.Run{
		{
			ID:          7,
			StartedAt:   time.Now().Add(-3 * time.Hour),
			Kind:        "plugin",
			Operation:   "update",
			Identifiers: []string{"akismet"},
			Status:      store.RunCompleted,
			CommitCount: 1,
		},
	}

	fmt.Print(output.RenderRunTable(runs))
}

// Example showing how to use a spinner around a slow query
func ExampleSpinner() {
	spinner := output.NewSpinner("Reading installed plugins")
	spinner.Start()

	// query WP-CLI...

	spinner.Stop()
}
