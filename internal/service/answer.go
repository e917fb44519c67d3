package service

import (
	"context"
	"log"

	"wikit-semantics/internal/session"
)

// AnswerService 根据工单内容生成回答
type AnswerService struct {
	tickets   *TicketService
	semantics *SemanticsService
}

func NewAnswerService(tickets *TicketService, semantics *SemanticsService) *AnswerService {
	return &AnswerService{tickets: tickets, semantics: semantics}
}

// Prepare 校验权限并取出工单正文,失败时不会访问外部API
func (s *AnswerService) Prepare(ctx context.Context, sess *session.Session, ticketID uint) (string, error) {
	content, err := s.tickets.Content(ctx, sess, ticketID)
	if err != nil {
		log.Printf("[Answer] ticket %d: %v", ticketID, err)
		return "", err
	}
	return content, nil
}

// Generate 缓冲模式:一次请求拿到完整回答
func (s *AnswerService) Generate(ctx context.Context, sess *session.Session, ticketID uint) (string, error) {
	query, err := s.Prepare(ctx, sess, ticketID)
	if err != nil {
		return "", err
	}
	return s.semantics.GetAPIAnswer(ctx, query)
}

// Stream 流模式:按到达顺序回调每个chunk
func (s *AnswerService) Stream(ctx context.Context, query string, onChunk func(string) error) error {
	return s.semantics.Stream(ctx, query, onChunk)
}
