package neo4j

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
)

func testRecord(keys []string, values []interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func TestSessionConfig(t *testing.T) {
	cfg := sessionConfig(neo4j.AccessModeWrite, "memories")
	assert.Equal(t, neo4j.AccessModeWrite, cfg.AccessMode)
	assert.Equal(t, "memories", cfg.DatabaseName)

	cfg = sessionConfig(neo4j.AccessModeRead, "")
	assert.Equal(t, neo4j.AccessModeRead, cfg.AccessMode)
	assert.Equal(t, "", cfg.DatabaseName)
}

func TestGetStringFromRecord(t *testing.T) {
	rec := testRecord([]string{"id", "count", "missing_value"}, []interface{}{"abc", int64(3), nil})

	assert.Equal(t, "abc", getStringFromRecord(rec, "id"))
	assert.Equal(t, "", getStringFromRecord(rec, "count"))
	assert.Equal(t, "", getStringFromRecord(rec, "missing_value"))
	assert.Equal(t, "", getStringFromRecord(rec, "absent"))
}

func TestGetStringsFromRecord(t *testing.T) {
	rec := testRecord(
		[]string{"labels", "mixed", "scalar"},
		[]interface{}{
			[]interface{}{"ChatSession", "Node"},
			[]interface{}{"ok", int64(1)},
			"not a list",
		},
	)

	assert.Equal(t, []string{"ChatSession", "Node"}, getStringsFromRecord(rec, "labels"))
	assert.Equal(t, []string{"ok"}, getStringsFromRecord(rec, "mixed"))
	assert.Nil(t, getStringsFromRecord(rec, "scalar"))
	assert.Nil(t, getStringsFromRecord(rec, "absent"))
}

func TestGetMapFromRecord(t *testing.T) {
	rec := testRecord(
		[]string{"props", "scalar"},
		[]interface{}{map[string]interface{}{"role": "user"}, "nope"},
	)

	assert.Equal(t, map[string]interface{}{"role": "user"}, getMapFromRecord(rec, "props"))
	assert.Empty(t, getMapFromRecord(rec, "scalar"))
	assert.Empty(t, getMapFromRecord(rec, "absent"))
}

func TestGetTimeFromRecord(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	rec := testRecord(
		[]string{"timestamp", "garbage", "empty"},
		[]interface{}{want.Format(time.RFC3339Nano), "not a time", ""},
	)

	assert.True(t, want.Equal(getTimeFromRecord(rec, "timestamp")))
	assert.True(t, getTimeFromRecord(rec, "garbage").IsZero())
	assert.True(t, getTimeFromRecord(rec, "empty").IsZero())
}
