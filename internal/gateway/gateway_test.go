package gateway

import (
	"os"
	"testing"

	"dochub-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}
