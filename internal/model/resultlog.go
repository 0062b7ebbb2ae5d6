package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 步骤名称
const (
	StepInputText  = "input_text"
	StepTranscribe = "transcribe"
	StepSummarize  = "summarize"
	StepTranslate  = "translate"
)

// 步骤状态
const (
	StepStatusRunning   = "running"
	StepStatusCompleted = "completed"
	StepStatusFailed    = "failed"
)

// StepRecord 单个处理步骤的执行记录
type StepRecord struct {
	Name       string                 `json:"name"`
	Status     string                 `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Output     map[string]interface{} `json:"output"`
}

// RunError 作业级错误条目
type RunError struct {
	Error string    `json:"error"`
	Time  time.Time `json:"time"`
}

// ResultLog 作业的结构化执行记录，按步骤名去重、保留首次插入顺序。
// 作为 JSON 列存储在 processing_jobs.result_json 上。
type ResultLog struct {
	OverallStatus string       `json:"overall_status"`
	Steps         []StepRecord `json:"steps"`
	Errors        []RunError   `json:"errors"`
}

// NewResultLog 初始化运行中的结果记录
func NewResultLog() *ResultLog {
	return &ResultLog{
		OverallStatus: "running",
		Steps:         []StepRecord{},
		Errors:        []RunError{},
	}
}

// FindCompleted 按名称查找已完成的步骤；running/failed 的记录对该查找不可见，
// 因此失败的步骤会被重试而不是当作缓存命中。
func (r *ResultLog) FindCompleted(name string) *StepRecord {
	for i := range r.Steps {
		if r.Steps[i].Name == name && r.Steps[i].Status == StepStatusCompleted {
			return &r.Steps[i]
		}
	}
	return nil
}

// Upsert 按名称替换记录，不存在则追加；其余记录保持首次插入的相对顺序。
func (r *ResultLog) Upsert(step StepRecord) {
	for i := range r.Steps {
		if r.Steps[i].Name == step.Name {
			r.Steps[i] = step
			return
		}
	}
	r.Steps = append(r.Steps, step)
}

// AddError 追加作业级错误条目
func (r *ResultLog) AddError(msg string, at time.Time) {
	r.Errors = append(r.Errors, RunError{Error: msg, Time: at})
}

// CompletedOutputText 取某已完成步骤输出中的指定字段文本，不存在返回空串
func (r *ResultLog) CompletedOutputText(name, field string) string {
	step := r.FindCompleted(name)
	if step == nil || step.Output == nil {
		return ""
	}
	s, _ := step.Output[field].(string)
	return s
}

func (r ResultLog) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *ResultLog) Scan(value interface{}) error {
	if value == nil {
		*r = ResultLog{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, r)
}

// JSONMap 用于 params_json / input_json 等自由结构 JSON 字段
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, m)
}
