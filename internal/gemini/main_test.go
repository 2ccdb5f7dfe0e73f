package gemini

import (
	"os"
	"testing"

	"github.com/codex-k8s/gemini-check-mcp-server/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.RunHelperIfRequested()
	os.Exit(m.Run())
}
