package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelJobProgress = "job_progress"
)

// ProgressMessage 作业步骤进度消息
type ProgressMessage struct {
	Type    string `json:"type"`
	UserID  int64  `json:"user_id"`
	JobID   int64  `json:"job_id"`
	Step    string `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// 步骤对应的提示文案
var StepMessages = map[string]string{
	"transcribe": "正在转写音频",
	"summarize":  "正在生成摘要",
	"translate":  "正在翻译文本",
	"notes":      "正在生成笔记",
	"quiz":       "正在生成测验",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishJobProgress 发布作业进度；编排核心通过该方法通知前端
func (p *Publisher) PublishJobProgress(ctx context.Context, userID, jobID int64, step, status, errMsg string) error {
	msg := &ProgressMessage{
		Type:   "job_progress",
		UserID: userID,
		JobID:  jobID,
		Step:   step,
		Status: status,
		Error:  errMsg,
	}
	if m, ok := StepMessages[step]; ok {
		msg.Message = m
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelJobProgress, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅进度消息，直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelJobProgress)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&progressMsg)
		}
	}
}
