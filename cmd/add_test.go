package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LavenderBridge/recall/internal/config"
	"github.com/LavenderBridge/recall/internal/pipeline"
)

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"array", "dp"}, splitTags(" array, ,dp,"))
	assert.Nil(t, splitTags(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n  b\tc", 10))
	assert.Equal(t, "héllo w…", truncate("héllo world", 8))
}

func TestPrintStagesAndPresets(t *testing.T) {
	var out bytes.Buffer
	printStages(&out, pipeline.DefaultRegistry())
	assert.Contains(t, out.String(), "limiter: fixed-count, percentage, smart-limit, time-limit")

	cfg := config.Default(t.TempDir())
	out.Reset()
	printPresets(&out, cfg)
	assert.Contains(t, out.String(), "No presets configured.")

	cfg.Presets = map[string]pipeline.SessionConfig{"quick": pipeline.RandomAll(pipeline.TemplateOptions{Limit: 5})}
	out.Reset()
	printPresets(&out, cfg)
	assert.Contains(t, out.String(), "quick (source all-knowledge)")
}
