package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("SMC_T_STR", "x")
	t.Setenv("SMC_T_INT", "42")
	t.Setenv("SMC_T_BADINT", "4x")
	t.Setenv("SMC_T_BOOL", "off")
	t.Setenv("SMC_T_DUR", "1500ms")
	t.Setenv("SMC_T_LIST", " a, ,b ,")

	assert.Equal(t, "x", GetEnv("SMC_T_STR", "d"))
	assert.Equal(t, "d", GetEnv("SMC_T_MISSING", "d"))
	assert.Equal(t, 42, GetEnvInt("SMC_T_INT", 1))
	assert.Equal(t, 1, GetEnvInt("SMC_T_BADINT", 1))
	assert.False(t, GetEnvBool("SMC_T_BOOL", true))
	assert.True(t, GetEnvBool("SMC_T_MISSING", true))
	assert.Equal(t, 1500*time.Millisecond, GetEnvDuration("SMC_T_DUR", time.Second))
	assert.Equal(t, []string{"a", "b"}, GetEnvList("SMC_T_LIST", nil))
	assert.Equal(t, []string{"z"}, GetEnvList("SMC_T_MISSING", []string{"z"}))
}
