package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zf7c/studylab_go_server/config"
)

// Client 调用推理服务的 HTTP 适配器，实现全部能力接口。
// 推理后端可能返回纯字符串，也可能返回字段名不一的对象，
// 形状归一化收敛在这里，编排器看不到这些差异。
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg *config.InferenceConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    http.DefaultClient,
	}
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return json.RawMessage(data), nil
}

// decode 先尝试纯字符串，再回退到对象
func decode(raw json.RawMessage) (string, map[string]interface{}, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, fmt.Errorf("unexpected inference response shape: %s", truncate(string(raw), 200))
	}
	return "", obj, nil
}

// firstString 按优先级从对象取出第一个非空字符串字段
func firstString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (c *Client) Transcribe(ctx context.Context, source string) (*TranscribeResult, error) {
	raw, err := c.post(ctx, "/v1/transcribe", map[string]interface{}{"source": source})
	if err != nil {
		return nil, err
	}

	scalar, obj, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return &TranscribeResult{Text: scalar, Raw: scalar}, nil
	}

	res := &TranscribeResult{
		Text:     firstString(obj, "text", "transcription"),
		Language: firstString(obj, "language"),
		Raw:      obj,
	}
	for _, key := range []string{"segments", "chunks"} {
		if segs, ok := obj[key].([]interface{}); ok {
			for _, s := range segs {
				if m, ok := s.(map[string]interface{}); ok {
					res.Segments = append(res.Segments, m)
				}
			}
			break
		}
	}
	return res, nil
}

func (c *Client) Summarize(ctx context.Context, text, mode string) (*SummarizeResult, error) {
	raw, err := c.post(ctx, "/v1/summarize", map[string]interface{}{"text": text, "mode": mode})
	if err != nil {
		return nil, err
	}

	scalar, obj, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return &SummarizeResult{Summary: scalar, Raw: scalar}, nil
	}

	res := &SummarizeResult{Summary: firstString(obj, "summary", "text"), Raw: obj}
	if inner, ok := obj["raw"]; ok {
		res.Raw = inner
	}
	return res, nil
}

func (c *Client) Translate(ctx context.Context, text, targetLang, sourceLang string) (*TranslateResult, error) {
	payload := map[string]interface{}{"text": text, "target_lang": targetLang}
	if sourceLang != "" {
		payload["source_lang"] = sourceLang
	}
	raw, err := c.post(ctx, "/v1/translate", payload)
	if err != nil {
		return nil, err
	}

	scalar, obj, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return &TranslateResult{Translation: scalar, Raw: scalar}, nil
	}

	res := &TranslateResult{
		Translation: firstString(obj, "translation", "text"),
		SourceLang:  firstString(obj, "source_lang", "detected_source"),
		Raw:         obj,
	}
	if inner, ok := obj["raw"]; ok {
		res.Raw = inner
	}
	return res, nil
}

func (c *Client) BuildNotes(ctx context.Context, text string, count int, density string) (*NotesResult, error) {
	raw, err := c.post(ctx, "/v1/notes", map[string]interface{}{
		"text": text, "count": count, "density": density,
	})
	if err != nil {
		return nil, err
	}

	scalar, obj, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		// 单条笔记的纯文本返回
		return &NotesResult{Notes: []string{scalar}, Raw: scalar}, nil
	}

	res := &NotesResult{Raw: obj}
	if items, ok := obj["notes"].([]interface{}); ok {
		for _, it := range items {
			switch v := it.(type) {
			case string:
				res.Notes = append(res.Notes, v)
			case map[string]interface{}:
				if content := firstString(v, "content", "text"); content != "" {
					res.Notes = append(res.Notes, content)
				}
			}
		}
	} else if single := firstString(obj, "note", "text"); single != "" {
		res.Notes = []string{single}
	}
	return res, nil
}

func (c *Client) BuildQuiz(ctx context.Context, text string, numQuestions int, difficulty string) (*QuizResult, error) {
	raw, err := c.post(ctx, "/v1/quiz", map[string]interface{}{
		"text": text, "num_questions": numQuestions, "difficulty": difficulty,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []QuizQuestion  `json:"questions"`
		Raw       json.RawMessage `json:"raw"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected quiz response shape: %w", err)
	}

	res := &QuizResult{Questions: parsed.Questions}
	if len(parsed.Raw) > 0 {
		var inner interface{}
		if err := json.Unmarshal(parsed.Raw, &inner); err == nil {
			res.Raw = inner
		} else {
			res.Raw = string(parsed.Raw)
		}
	}
	return res, nil
}
