package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"

	domainmocks "playvars.dev/pkg/playvars/internal/domain/mocks"
)

// newTestRoot mounts sub under a fresh root command and swaps the global
// workflow for a mock until the test ends.
func newTestRoot(t *testing.T, sub *cobra.Command) (*cobra.Command, *domainmocks.MockWorkflow, *bytes.Buffer) {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)

	originalWorkflow := workflow
	workflow = mockWorkflow
	t.Cleanup(func() { workflow = originalWorkflow })

	cmd := newRootCmd()
	cmd.AddCommand(sub)

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)

	return cmd, mockWorkflow, out
}
