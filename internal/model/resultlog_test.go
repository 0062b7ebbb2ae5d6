package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedStep(name string, output map[string]interface{}) StepRecord {
	now := time.Now().UTC()
	return StepRecord{
		Name:       name,
		Status:     StepStatusCompleted,
		StartedAt:  now,
		FinishedAt: &now,
		Output:     output,
	}
}

func TestResultLog_UpsertPreservesOrder(t *testing.T) {
	r := NewResultLog()
	r.Upsert(completedStep(StepTranscribe, nil))
	r.Upsert(completedStep(StepSummarize, nil))
	r.Upsert(completedStep(StepTranslate, nil))

	// 更新中间的记录不改变相对顺序
	updated := completedStep(StepSummarize, map[string]interface{}{"summary": "v2"})
	r.Upsert(updated)

	require.Len(t, r.Steps, 3)
	assert.Equal(t, StepTranscribe, r.Steps[0].Name)
	assert.Equal(t, StepSummarize, r.Steps[1].Name)
	assert.Equal(t, StepTranslate, r.Steps[2].Name)
	assert.Equal(t, "v2", r.Steps[1].Output["summary"])
}

func TestResultLog_FindCompletedIgnoresNonCompleted(t *testing.T) {
	r := NewResultLog()

	r.Upsert(StepRecord{Name: StepTranscribe, Status: StepStatusRunning, StartedAt: time.Now().UTC()})
	assert.Nil(t, r.FindCompleted(StepTranscribe))

	now := time.Now().UTC()
	r.Upsert(StepRecord{Name: StepTranscribe, Status: StepStatusFailed, StartedAt: now, FinishedAt: &now})
	// 失败的记录对查找不可见，调用方会重试而不是复用
	assert.Nil(t, r.FindCompleted(StepTranscribe))

	r.Upsert(completedStep(StepTranscribe, map[string]interface{}{"text": "hello"}))
	step := r.FindCompleted(StepTranscribe)
	require.NotNil(t, step)
	assert.Equal(t, "hello", step.Output["text"])
}

func TestResultLog_CompletedOutputText(t *testing.T) {
	r := NewResultLog()
	assert.Equal(t, "", r.CompletedOutputText(StepSummarize, "summary"))

	r.Upsert(completedStep(StepSummarize, map[string]interface{}{"summary": "short"}))
	assert.Equal(t, "short", r.CompletedOutputText(StepSummarize, "summary"))
	assert.Equal(t, "", r.CompletedOutputText(StepSummarize, "missing"))

	// 非字符串输出返回空串而不是 panic
	r.Upsert(completedStep(StepTranslate, map[string]interface{}{"translation": 42}))
	assert.Equal(t, "", r.CompletedOutputText(StepTranslate, "translation"))
}

func TestResultLog_AddError(t *testing.T) {
	r := NewResultLog()
	at := time.Now().UTC()
	r.AddError("first", at)
	r.AddError("second", at)

	require.Len(t, r.Errors, 2)
	assert.Equal(t, "first", r.Errors[0].Error)
	assert.Equal(t, "second", r.Errors[1].Error)
}

func TestResultLog_ValueScanRoundTrip(t *testing.T) {
	r := NewResultLog()
	r.OverallStatus = "completed"
	r.Upsert(completedStep(StepTranscribe, map[string]interface{}{"text": "hello"}))
	r.AddError("late failure", time.Now().UTC())

	val, err := r.Value()
	require.NoError(t, err)

	var restored ResultLog
	require.NoError(t, restored.Scan(val))

	assert.Equal(t, "completed", restored.OverallStatus)
	require.Len(t, restored.Steps, 1)
	assert.Equal(t, StepTranscribe, restored.Steps[0].Name)
	assert.Equal(t, "hello", restored.Steps[0].Output["text"])
	require.Len(t, restored.Errors, 1)
	assert.Equal(t, "late failure", restored.Errors[0].Error)
}

func TestResultLog_ScanNil(t *testing.T) {
	var r ResultLog
	require.NoError(t, r.Scan(nil))
	assert.Empty(t, r.Steps)
}

func TestJSONMap_ValueScan(t *testing.T) {
	m := JSONMap{"mode": "concise", "force": true}
	val, err := m.Value()
	require.NoError(t, err)

	var restored JSONMap
	require.NoError(t, restored.Scan(val))
	assert.Equal(t, "concise", restored["mode"])
	assert.Equal(t, true, restored["force"])

	var nilMap JSONMap
	val, err = nilMap.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", val)
}

func TestNewResultLog_SerializesWithStableShape(t *testing.T) {
	r := NewResultLog()
	data, err := json.Marshal(r)
	require.NoError(t, err)

	// 空日志序列化出空数组而不是 null
	assert.JSONEq(t, `{"overall_status":"running","steps":[],"errors":[]}`, string(data))
}
