package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	var v struct {
		D Duration `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"1m30s"}`), &v))
	assert.Equal(t, 90*time.Second, v.D.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"d":1000}`), &v))
	assert.Equal(t, time.Microsecond, v.D.Duration)

	assert.Error(t, json.Unmarshal([]byte(`{"d":"soon"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"d":true}`), &v))

	out, err := json.Marshal(Duration{Duration: 2 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `"2s"`, string(out))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		D Duration `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: 250ms\n"), &v))
	assert.Equal(t, 250*time.Millisecond, v.D.Duration)

	require.NoError(t, yaml.Unmarshal([]byte("d: 5\n"), &v))
	assert.Equal(t, time.Duration(5), v.D.Duration)

	assert.Error(t, yaml.Unmarshal([]byte("d: later\n"), &v))
}
